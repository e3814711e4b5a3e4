// Package config holds the storage configuration: memtable sizing, WAL
// layout, levels, cache, and logging.
package config

type Config struct {
	Logger LoggerConfig `yaml:"logger" validate:"required"`
	DB     DB           `yaml:"db" validate:"required"`
}

type DB struct {
	Memtable    MemtableConfig    `yaml:"memtable" validate:"required"`
	Persistence PersistenceConfig `yaml:"persistence" validate:"required"`
}

type MemtableConfig struct {
	FlushThresholdBytes int `yaml:"flush_threshold" validate:"required,min=1"`
	MaxImmTables        int `yaml:"max_imm_tables" validate:"min=0"`
}

type PersistenceConfig struct {
	RootPath    string            `yaml:"path" validate:"required,dir"`
	WAL         WALConfig         `yaml:"wal" validate:"required"`
	Levels      LevelsConfig      `yaml:"levels" validate:"required"`
	SSTable     SSTableConfig     `yaml:"sstable" validate:"required"`
	Cache       CacheConfig       `yaml:"cache" validate:"required"`
	BloomFilter BloomFilterConfig `yaml:"bloom_filter" validate:"required"`
}

type WALConfig struct {
	ValueLogFileSize int64 `yaml:"value_log_file_size" validate:"required,min=1"`
	SyncWrites       bool  `yaml:"sync_writes"`
}

type LevelsConfig struct {
	MaxLevels               int `yaml:"max_levels" validate:"required,min=1"`
	NumLevelZeroTablesStall int `yaml:"num_level_zero_tables_stall" validate:"required,min=1"`
}

type SSTableConfig struct {
	BlockSizeBytes   int `yaml:"block_size" validate:"required,min=1"`
	SizeMultiplier   int `yaml:"size_multiplier" validate:"required,min=1"`
	CompactThreshold int `yaml:"compact_threshold" validate:"required,min=1"`
}

type CacheConfig struct {
	Capacity int `yaml:"capacity" validate:"required,min=1"`
}

type BloomFilterConfig struct {
	FPRate float64 `yaml:"fp_rate" validate:"required,gt=0,lt=1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	JSON  bool   `yaml:"json"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level: "DEBUG",
			JSON:  false,
		},
		DB: DB{
			Memtable: MemtableConfig{
				FlushThresholdBytes: 1 << 20,
				MaxImmTables:        3,
			},
			Persistence: PersistenceConfig{
				RootPath: "./data",
				WAL: WALConfig{
					ValueLogFileSize: 64 << 20,
					SyncWrites:       false,
				},
				Levels: LevelsConfig{
					MaxLevels:               7,
					NumLevelZeroTablesStall: 8,
				},
				SSTable: SSTableConfig{
					BlockSizeBytes:   4096,
					SizeMultiplier:   10,
					CompactThreshold: 4,
				},
				Cache: CacheConfig{
					Capacity: 1024,
				},
				BloomFilter: BloomFilterConfig{
					FPRate: 0.01,
				},
			},
		},
	}
}
