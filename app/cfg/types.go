package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	SourcesDir        string
	LicensesFile      string
	ArchiveDir        string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Harvesting configuration
	MetadataPrefix      string
	RequestTimeout      int
	MaxRetries          int
	VocabDomain         string
	AttachFileResources bool

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
