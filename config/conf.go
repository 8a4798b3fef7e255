package config

import (
	"flag"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

var confPath string

func init() {
	flag.StringVar(&confPath, "conf", "configs/", "default config path")
}

var (
	Server   server
	Database DatabaseConfig
	Reward   reward
	Log      logging
)

// Server 配置
type server struct {
	Env        string `yaml:"env"`
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	GinMode    string `yaml:"gin_mode"`
	DgraphAddr string `yaml:"dgraph_addr"` // empty disables the referral graph export
}

type DatabaseConfig struct {
	Driver          string `yaml:"driver"` // mysql, postgres or sqlite
	Host            string `yaml:"host"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	Charset         string `yaml:"charset"`
	DSN             string `yaml:"dsn"` // used as is for postgres and sqlite
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // seconds
}

// Reward 奖励引擎配置
type reward struct {
	TimeZone            string `yaml:"time_zone"`
	MaxInfinityDepth    int    `yaml:"max_infinity_depth"`
	MaxSlotsPerEvent    int    `yaml:"max_slots_per_event"`
	RecentActivityLimit int    `yaml:"recent_activity_limit"`
	SnapshotSchedule    string `yaml:"snapshot_schedule"`
	SweepSchedule       string `yaml:"sweep_schedule"`
	RelationSchedule    string `yaml:"relation_schedule"`
	SweepBatchSize      int    `yaml:"sweep_batch_size"`
}

type logging struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // text or json
	File       string `yaml:"file"`   // empty logs to stderr
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

func Init() {
	unmarshal("server", &Server)
	unmarshal("database", &Database)
	unmarshal("reward", &Reward)
	unmarshal("log", &Log)
}

// Load reads every config file from path without panicking.
func Load(path string) error {
	confPath = path
	for name, out := range map[string]interface{}{
		"server":   &Server,
		"database": &Database,
		"reward":   &Reward,
		"log":      &Log,
	} {
		if err := read(name, out); err != nil {
			return err
		}
	}
	return nil
}

func unmarshal(name string, out interface{}) {
	if err := read(name, out); err != nil {
		panic(err)
	}
}

func read(name string, out interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.AddConfigPath(confPath)
	v.SetEnvPrefix("REWARD_" + strings.ToUpper(name))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	err := v.ReadInConfig() // Find and read the config file
	if err != nil {         // Handle errors reading the config file
		return fmt.Errorf("Fatal error config file %s: %s \n", name, err)
	}

	err = v.Unmarshal(out, func(config *mapstructure.DecoderConfig) {
		config.TagName = "yaml"
	})
	if err != nil {
		return fmt.Errorf("Fatal error unmarshal config file %s: %s \n", name, err)
	}
	return nil
}
