package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

// QueueConfig names the queue and sets the TTL applied to records at
// enqueue time (a job that is not claimed within this window simply
// disappears).
type QueueConfig struct {
	Name              string `yaml:"name"`
	EnqueueTTLSeconds int    `yaml:"enqueueTTLSeconds"`
}

// WorkerConfig mirrors worker.Options; zero values mean "use the
// default" (wait 10s, timeout 30s, 1 poll/s, result TTL 30s, stop on
// lost, run forever).
type WorkerConfig struct {
	WaitSeconds      int  `yaml:"waitSeconds"`
	TimeoutSeconds   int  `yaml:"timeoutSeconds"`
	PollsPerSecond   int  `yaml:"pollsPerSecond"`
	ResultTTLSeconds int  `yaml:"resultTTLSeconds"`
	ContinueOnLost   bool `yaml:"continueOnLost"`
}

type Config struct {
	Server ServerConfig `yaml:"server"`
	Redis  RedisConfig  `yaml:"redis"`
	Queue  QueueConfig  `yaml:"queue"`
	Worker WorkerConfig `yaml:"worker"`
}

func Load(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config: %v", err)
	}

	return &cfg
}
