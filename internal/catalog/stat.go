package catalog

import (
	"os"

	"dupscan/internal/detect"
)

// statTimes fills size and timestamps from the filesystem. Creation time
// comes from the platform hook and may stay zero where the filesystem does
// not record one.
func statTimes(record *detect.FileRecord) error {
	info, err := os.Stat(record.Path)
	if err != nil {
		return err
	}
	record.Size = info.Size()
	record.ModifiedAt = info.ModTime().UTC()
	if birth, ok := birthTime(record.Path); ok {
		record.CreatedAt = birth.UTC()
	}
	return nil
}
