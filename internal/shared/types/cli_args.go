package types

// CLIArgs represents the command-line arguments.
type CLIArgs struct {
	ConfigFile string
	AccountID  string
	All        bool
	Discover   bool
	Regions    []string
	Pillar     string
	SinceDays  int
	RunID      string
	ReportName string
	ReportType []string
	Dir        string
	DryRun     bool
	Concurrent int
}
