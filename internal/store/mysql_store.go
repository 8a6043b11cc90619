package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/evyataryagoni/ipgeocode/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// mysqlBatchSize bounds the number of rows per INSERT statement
const mysqlBatchSize = 500

// GeoResultModel is the GORM model for the geo_results table
// GORM uses struct tags to map to database columns
type GeoResultModel struct {
	IP           string    `gorm:"column:ip;primaryKey;size:64"` // Primary key
	CountryCode2 string    `gorm:"column:country_code2;size:2"`
	CountryName  string    `gorm:"column:country_name"`
	StateProv    string    `gorm:"column:state_prov"`
	City         string    `gorm:"column:city"`
	Latitude     string    `gorm:"column:latitude;size:32"`
	Longitude    string    `gorm:"column:longitude;size:32"`
	Payload      string    `gorm:"column:payload;type:json"`  // Full API response, in API order
	Error        string    `gorm:"column:error;size:64"`      // Failure kind, empty on success
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
// By default, GORM would pluralize to "geo_result_models"
func (GeoResultModel) TableName() string {
	return "geo_results"
}

// newGeoResultModel converts a result into its table row
func newGeoResultModel(result models.GeoResult) (GeoResultModel, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return GeoResultModel{}, fmt.Errorf("failed to encode result for %s: %w", result.IP, err)
	}

	return GeoResultModel{
		IP:           result.IP,
		CountryCode2: result.Payload.Value("country_code2"),
		CountryName:  result.Payload.Value("country_name"),
		StateProv:    result.Payload.Value("state_prov"),
		City:         result.Payload.Value("city"),
		Latitude:     result.Payload.Value("latitude"),
		Longitude:    result.Payload.Value("longitude"),
		Payload:      string(payload),
		Error:        string(result.Failure),
	}, nil
}

// MySQLStore implements Sink using MySQL with GORM
// Results are upserted: the latest run wins for an IP
type MySQLStore struct {
	db *gorm.DB // GORM database instance
}

// NewMySQLStore creates a new MySQL sink using GORM and migrates its table
//
// Parameters:
//   - dsn: Data Source Name (connection string)
//     Format: user:password@tcp(host:port)/dbname?parseTime=true
//
// Returns:
//   - *MySQLStore: pointer to the created store
//   - error: any error that occurred during connection or migration
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Disable query logging (set to Info for debugging)
	}

	db, err := gorm.Open(mysql.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL with GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping MySQL database: %w", err)
	}

	if err := db.AutoMigrate(&GeoResultModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate geo_results table: %w", err)
	}

	return &MySQLStore{db: db}, nil
}

// Write implements the Sink interface
//
// GORM query: INSERT INTO geo_results (...) VALUES (...), (...) ON DUPLICATE KEY UPDATE ...
func (s *MySQLStore) Write(ctx context.Context, results []models.GeoResult) error {
	if len(results) == 0 {
		return nil
	}

	// A batch may contain the same IP twice; keep the last one
	index := make(map[string]int, len(results))
	records := make([]GeoResultModel, 0, len(results))
	for _, result := range results {
		record, err := newGeoResultModel(result)
		if err != nil {
			return err
		}
		if i, ok := index[record.IP]; ok {
			records[i] = record
			continue
		}
		index[record.IP] = len(records)
		records = append(records, record)
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(&records, mysqlBatchSize)
	if result.Error != nil {
		return fmt.Errorf("failed to store results: %w", result.Error)
	}

	return nil
}

func (s *MySQLStore) String() string {
	return "mysql:geo_results"
}

// Close closes the database connection
// Should be called when the application shuts down
func (s *MySQLStore) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
