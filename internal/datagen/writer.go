package datagen

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bankinsight/churn-insights/internal/models"
	"github.com/bankinsight/churn-insights/internal/store"
)

// WriteCSV writes customers to path in the canonical column layout.
func WriteCSV(customers []models.Customer, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if err := store.WriteCSV(file, customers); err != nil {
		return fmt.Errorf("write csv %s: %w", path, err)
	}
	return nil
}
