package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

type probeResult struct {
	Format struct {
		Tags map[string]string `json:"tags"`
	} `json:"format"`
}

// probeTags returns the container-level tags reported by ffprobe.
func probeTags(ctx context.Context, binary, path string) (map[string]string, error) {
	cmd := commandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-of", "json", "--", path) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		var detail string
		if ee, ok := err.(*exec.ExitError); ok {
			detail = strings.TrimSpace(string(ee.Stderr))
		}
		return nil, fmt.Errorf("ffprobe: %w: %s", err, detail)
	}
	var res probeResult
	if err := json.Unmarshal(output, &res); err != nil {
		return nil, fmt.Errorf("ffprobe parse: %w", err)
	}
	return res.Format.Tags, nil
}
