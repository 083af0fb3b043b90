package config

const (
	defaultDataDir   = "~/.local/share/dupscan"
	defaultLogDir    = "~/.local/share/dupscan/logs"
	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultCatalogMaxFiles = 250000
)

var defaultCatalogExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".webp", ".heic",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Catalog: Catalog{
			MaxFiles:   defaultCatalogMaxFiles,
			Extensions: append([]string(nil), defaultCatalogExtensions...),
		},
		Detection: Detection{
			SimilarityThreshold:      80,
			SizeToleranceBytes:       0,
			TimeToleranceSeconds:     60,
			MinConfidence:            50,
			MaxResultsPerGroup:       100,
			BatchSize:                500,
			EnableExact:              true,
			EnablePerceptual:         true,
			EnableMetadata:           true,
			CrossAlgorithmValidation: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
