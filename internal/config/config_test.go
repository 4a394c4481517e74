package config

import (
	"testing"
	"time"
)

func defaultTestConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: "8085"},
		Robot: RobotConfig{
			Name:           "sparki",
			Port:           3141,
			MaxPacketSize:  300,
			FaultThreshold: 100 * time.Millisecond,
		},
		Logging: LoggingConfig{Level: "info"},
		App:     AppConfig{Name: "sparki-service", Version: "1.0.0", Environment: "test"},
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := defaultTestConfig()
	if err := validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidate_RequiresEndpoint(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.Robot.Name = ""
	cfg.Robot.IP = ""
	if err := validate(cfg); err == nil {
		t.Fatal("expected error when neither robot.name nor robot.ip is set")
	}

	cfg.Robot.IP = "192.168.1.40"
	if err := validate(cfg); err != nil {
		t.Fatalf("ip alone should be enough: %v", err)
	}
}

func TestValidate_RejectsBadPort(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.Robot.Port = 0
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for robot.port 0")
	}
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.Logging.Level = "verbose"
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for unknown logging.level")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Robot.Port != 3141 {
		t.Fatalf("robot.port=%d", cfg.Robot.Port)
	}
	if cfg.Robot.Query.Ping != 500*time.Millisecond {
		t.Fatalf("ping timeout=%v", cfg.Robot.Query.Ping)
	}
	if cfg.History.Enabled {
		t.Fatal("history should be disabled by default")
	}
}
