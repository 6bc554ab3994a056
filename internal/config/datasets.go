package config

// DatasetConfig describes one long-form input and how it is reshaped.
// Datasets are merged in the order they are listed; the first is the base.
type DatasetConfig struct {
	Name           string   `yaml:"name" validate:"required"`
	Path           string   `yaml:"path" validate:"required"`
	CategoryColumn string   `yaml:"category_column" validate:"required"`
	ValueColumn    string   `yaml:"value_column" validate:"required"`
	KeyColumns     []string `yaml:"key_columns" validate:"min=1,dive,required"`
	DropColumns    []string `yaml:"drop_columns"`
	Delimiter      string   `yaml:"delimiter" validate:"delimiter"`
	Sheet          string   `yaml:"sheet"`
}

// Dataset names used by the default configuration
const (
	DatasetWater     = "water"
	DatasetMedia     = "media"
	DatasetLatrine   = "latrine"
	DatasetAssets    = "assets"
	DatasetMigration = "migration"
	DatasetMobile    = "mobile"
)

// DefaultDatasets returns the six survey datasets in merge order.
func DefaultDatasets() []DatasetConfig {
	keys := func() []string { return []string{"State", "Sector"} }

	return []DatasetConfig{
		{
			Name:           DatasetWater,
			Path:           "Access to improved source of drinking water.csv",
			CategoryColumn: "Sub Indicator",
			ValueColumn:    "Value",
			KeyColumns:     keys(),
		},
		{
			Name:           DatasetMedia,
			Path:           "Access to Mass Media and Broadband.csv",
			CategoryColumn: "Internet Access",
			ValueColumn:    "Value",
			KeyColumns:     keys(),
		},
		{
			Name:           DatasetLatrine,
			Path:           "Improved latrine and hand washing facilities within household.csv",
			CategoryColumn: "Sub Indicator",
			ValueColumn:    "Value",
			KeyColumns:     keys(),
		},
		{
			Name:           DatasetAssets,
			Path:           "Household Assets.csv",
			CategoryColumn: "Sub Indicator",
			ValueColumn:    "Value",
			KeyColumns:     keys(),
		},
		{
			Name:           DatasetMigration,
			Path:           "Main reason for Migration.csv",
			CategoryColumn: "Main reason for Migration",
			ValueColumn:    "Value",
			KeyColumns:     keys(),
			DropColumns:    []string{"Gender"},
		},
		{
			Name:           DatasetMobile,
			Path:           "Usage of mobile phone.csv",
			CategoryColumn: "Indicator",
			ValueColumn:    "Value",
			KeyColumns:     keys(),
		},
	}
}

// DelimiterRune returns the dataset's delimiter, or fallback when unset.
func (d DatasetConfig) DelimiterRune(fallback rune) rune {
	if d.Delimiter == "" {
		return fallback
	}
	return []rune(d.Delimiter)[0]
}
