package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// DefaultArtURLs are fetched by the ansi command when no art directory is
// configured.
var DefaultArtURLs = []string{
	"https://raw.githubusercontent.com/lwlsn/ascii-art/master/ansi-art/a-team.ans",
	"https://raw.githubusercontent.com/tehmaze/ansimple/master/examples/logo.ans",
	"https://raw.githubusercontent.com/atdt/ansilove/master/examples/example.ans",
	"https://raw.githubusercontent.com/mnsantos/asciiart/master/test.ans",
	"https://raw.githubusercontent.com/JohnW-CS/ANSI-Art/master/ANSI/JW-LOGO.ANS",
	"https://raw.githubusercontent.com/textfiles/artwork/master/ansi/UNIX.ANS",
}

// ServerConfig defines node-wide settings
type ServerConfig struct {
	NodeName  string `json:"nodeName"`
	BoardName string `json:"boardName"`

	SSHPort             int    `json:"sshPort"`
	SSHHost             string `json:"sshHost"`
	SSHEnabled          bool   `json:"sshEnabled"`
	HostKeyPath         string `json:"hostKeyPath"`         // relative to the config dir unless absolute
	LegacySSHAlgorithms bool   `json:"legacySSHAlgorithms"` // offer SHA-1 KEX/MACs for retro clients
	TelnetPort          int    `json:"telnetPort"`
	TelnetHost          string `json:"telnetHost"`
	TelnetEnabled       bool   `json:"telnetEnabled"`
	WebPort             int    `json:"webPort"`
	WebHost             string `json:"webHost"`
	WebEnabled          bool   `json:"webEnabled"`
	MaxNodes            int    `json:"maxNodes"`
	MaxConnectionsPerIP int    `json:"maxConnectionsPerIP"`

	ContentBaseURL        string `json:"contentBaseURL"`
	ContentTimeoutSeconds int    `json:"contentTimeoutSeconds"`
	RefreshSchedule       string `json:"refreshSchedule"` // cron with seconds field

	HistoryCap      int      `json:"historyCap"`
	ScrollbackLines int      `json:"scrollbackLines"`
	EngineScript    string   `json:"engineScript"` // JavaScript command engine, empty for built-in
	ArtDir          string   `json:"artDir"`
	ArtURLs         []string `json:"artURLs"`
	OutputMode      string   `json:"outputMode"` // auto, utf8 or cp437
	Debug           bool     `json:"debug"`
}

// DefaultServerConfig returns the settings used for any field config.json
// leaves out.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		NodeName:              "tecnoter.io",
		BoardName:             "tecnoter.io Bulletin Board System",
		SSHPort:               2222,
		SSHHost:               "0.0.0.0",
		SSHEnabled:            true,
		HostKeyPath:           "ssh_host_rsa_key",
		TelnetPort:            2323,
		TelnetHost:            "0.0.0.0",
		TelnetEnabled:         false,
		WebPort:               8080,
		WebHost:               "0.0.0.0",
		WebEnabled:            false,
		MaxNodes:              10,
		MaxConnectionsPerIP:   3,
		ContentBaseURL:        "https://tecnoter.io",
		ContentTimeoutSeconds: 10,
		RefreshSchedule:       "0 */15 * * * *",
		HistoryCap:            100,
		ScrollbackLines:       2000,
		ArtURLs:               append([]string(nil), DefaultArtURLs...),
		OutputMode:            "auto",
	}
}

// ContentTimeout is the per-request timeout for the content client.
func (c ServerConfig) ContentTimeout() time.Duration {
	if c.ContentTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ContentTimeoutSeconds) * time.Second
}

// ResolvePath joins a relative path from config.json onto configPath.
func ResolvePath(configPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(configPath, p)
}

// LoadServerConfig loads the server configuration from config.json
func LoadServerConfig(configPath string) (ServerConfig, error) {
	filePath := filepath.Join(configPath, "config.json")
	log.Printf("INFO: Loading server configuration from %s", filePath)

	defaultConfig := DefaultServerConfig()

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("WARN: config.json not found at %s. Using default settings.", filePath)
			return defaultConfig, nil
		}
		return defaultConfig, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	// Initialize with defaults before unmarshalling
	config := DefaultServerConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		log.Printf("ERROR: Failed to parse config JSON from %s: %v. Using default settings.", filePath, err)
		return defaultConfig, fmt.Errorf("failed to parse config JSON from %s: %w", filePath, err)
	}

	if config.HistoryCap <= 0 {
		config.HistoryCap = defaultConfig.HistoryCap
	}
	if config.ScrollbackLines <= 0 {
		config.ScrollbackLines = defaultConfig.ScrollbackLines
	}
	if config.MaxNodes <= 0 {
		config.MaxNodes = defaultConfig.MaxNodes
	}

	log.Printf("INFO: Successfully loaded server configuration from %s", filePath)
	return config, nil
}
