package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Bulletin is one dated line on the bulletins screen.
type Bulletin struct {
	Date string `yaml:"date"`
	Text string `yaml:"text"`
}

// RosterEntry is a static caller shown in the online user list after the
// live nodes.
type RosterEntry struct {
	Node     int    `yaml:"node"`
	User     string `yaml:"user"`
	Location string `yaml:"location"`
	Action   string `yaml:"action"`
}

// BoardStats are the vanity counters on the statistics screen.
type BoardStats struct {
	TotalCalls  int `yaml:"totalCalls"`
	TotalUsers  int `yaml:"totalUsers"`
	ActiveNodes int `yaml:"activeNodes"`
}

// BoardConfig holds the static BBS screen content from board.yaml.
type BoardConfig struct {
	Bulletins []Bulletin    `yaml:"bulletins"`
	FileAreas []string      `yaml:"fileAreas"`
	Roster    []RosterEntry `yaml:"roster"`
	Weather   []string      `yaml:"weather"`
	Fortunes  []string      `yaml:"fortunes"`
	Stats     BoardStats    `yaml:"stats"`
}

// DefaultBoardConfig returns the stock board content.
func DefaultBoardConfig() BoardConfig {
	return BoardConfig{
		Bulletins: []Bulletin{
			{Date: "2026-01-01", Text: "Welcome to the New Year on tecnoter.io!"},
			{Date: "2026-01-02", Text: "System memory upgraded to 128GB."},
			{Date: "2026-01-03", Text: "New ANSI art collection added."},
			{Date: "2026-01-03", Text: "Mail routing issues resolved."},
		},
		FileAreas: []string{
			"System Utilities & Drivers",
			"ANSI/ASCII Art Collections",
			"Telecommunications Software",
			"Retro Game Demos",
			"Text Files & G-Files",
		},
		Roster: []RosterEntry{
			{Node: 1, User: "guest", Location: "Local", Action: "Reading Bulletins"},
			{Node: 2, User: "sysop", Location: "Remote", Action: "Maintenance"},
			{Node: 3, User: "wizard", Location: "Unknown", Action: "matrix"},
			{Node: 4, User: "cyber_pioneer", Location: "Seattle, WA", Action: "Composing Mail"},
		},
		Weather:  []string{"", "WEATHER: 24C | SUNNY", ""},
		Fortunes: []string{"Success is a journey.", "Node 1 is active."},
		Stats: BoardStats{
			TotalCalls:  84291,
			TotalUsers:  1024,
			ActiveNodes: 4,
		},
	}
}

// LoadBoardConfig loads board.yaml from configPath. Sections missing from
// the file keep their defaults.
func LoadBoardConfig(configPath string) (BoardConfig, error) {
	filePath := filepath.Join(configPath, "board.yaml")
	log.Printf("INFO: Loading board content from %s", filePath)

	defaultConfig := DefaultBoardConfig()

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("INFO: board.yaml not found at %s. Using stock board content.", filePath)
			return defaultConfig, nil
		}
		return defaultConfig, fmt.Errorf("failed to read board file %s: %w", filePath, err)
	}

	board := DefaultBoardConfig()
	if err := yaml.Unmarshal(data, &board); err != nil {
		log.Printf("ERROR: Failed to parse board YAML from %s: %v", filePath, err)
		return defaultConfig, fmt.Errorf("failed to parse board YAML from %s: %w", filePath, err)
	}

	log.Printf("INFO: Loaded board content: %d bulletin(s), %d file area(s), %d roster entr(ies)",
		len(board.Bulletins), len(board.FileAreas), len(board.Roster))
	return board, nil
}
