package config

// Application constants
const (
	// Application Info
	AppName    = "sdgwater"
	AppVersion = "1.0.0"

	// SDG 6.1 target: share of population using an improved drinking water source
	DefaultThreshold = 90.0

	// Output
	DefaultOutputFile = "final_sdg_water_data.csv"
	DefaultSampleRows = 5

	// File permissions
	DirPermissions  = 0755
	FilePermissions = 0644
)

// DefaultTierLabels are the priority tiers from most to least urgent
var DefaultTierLabels = []string{"Tier 1 (Urgent)", "Tier 2", "Tier 3", "Tier 4", "Tier 5 (Best)"}
