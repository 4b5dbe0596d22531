package commands

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/mangasync/errors"
)

const timeLayout = "2006-01-02 15:04:05"

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "encode JSON output")
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
