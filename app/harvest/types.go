package harvest

// Source configuration types

type Source struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Settings SourceSettings `yaml:"settings"`
}

type SourceSettings struct {
	Enabled         bool   `yaml:"enabled"`
	MetadataPrefix  string `yaml:"metadata_prefix"`
	Set             string `yaml:"set"`
	HarvestInterval int    `yaml:"harvest_interval"` // seconds
}
