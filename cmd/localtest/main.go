package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mykytaterentiev/metaOfmBot/internal/config"
	"github.com/mykytaterentiev/metaOfmBot/internal/fingerprint"
	logx "github.com/mykytaterentiev/metaOfmBot/internal/logs"
	"github.com/mykytaterentiev/metaOfmBot/internal/metadata"
	"github.com/mykytaterentiev/metaOfmBot/internal/metadiff"
	"github.com/mykytaterentiev/metaOfmBot/internal/pipeline"
	"github.com/mykytaterentiev/metaOfmBot/internal/transcode"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	kind     string
	count    int
	registry string
	out      string
}

func newRootCommand() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "localtest <input>",
		Short: "Generate variants of a local file without Telegram",
		Long: "Runs the variant pipeline against a file on disk and copies every variant\n" +
			"and its metadata log into the output directory.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), args[0], o)
		},
	}
	cmd.Flags().StringVar(&o.kind, "kind", "", "media kind: video or photo (guessed from the extension when empty)")
	cmd.Flags().IntVarP(&o.count, "count", "n", 3, "number of variants")
	cmd.Flags().StringVar(&o.registry, "registry", "", "fingerprint registry file (a throwaway one when empty)")
	cmd.Flags().StringVarP(&o.out, "out", "o", "./out", "directory receiving variants and logs")
	return cmd
}

func run(ctx context.Context, stdout io.Writer, input string, o options) error {
	c := config.Load()
	lc := logx.FromEnv("localtest")
	lc.Out = os.Stderr
	logx.Setup(lc)
	if ctx == nil {
		ctx = context.Background()
	}

	kind, err := resolveKind(o.kind, input)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(o.out, 0o755); err != nil {
		return err
	}

	regPath := o.registry
	if regPath == "" {
		tmp, err := os.MkdirTemp("", "localtest-registry-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tmp)
		regPath = filepath.Join(tmp, "processed.json")
	}
	reg, err := fingerprint.OpenFileRegistry(regPath)
	if err != nil {
		return err
	}
	batcher, err := c.Batcher()
	if err != nil {
		return err
	}

	p, err := pipeline.New(pipeline.Options{
		Registry:  reg,
		Params:    batcher,
		Extractor: metadata.NewExtractor(c.FFprobeBin),
		Transcoder: transcode.New(
			transcode.WithFFmpeg(c.FFmpegBin),
			transcode.WithExiftool(c.ExiftoolBin),
			transcode.WithTimeout(c.TranscodeTimeout),
			transcode.WithTemperature(c.ApplyTemperature),
		),
		MaxVariants: c.MaxVariants,
	})
	if err != nil {
		return err
	}

	sink := pipeline.SinkFunc(func(_ context.Context, r pipeline.Result) error {
		dst := filepath.Join(o.out, filepath.Base(r.OutputPath))
		if err := copyFile(r.OutputPath, dst); err != nil {
			return err
		}
		logPath := filepath.Join(o.out, fmt.Sprintf("variant_%d_logs.txt", r.Index))
		if err := os.WriteFile(logPath, []byte(metadiff.Summary(r.Index, r.Report)), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Generated: %s (%s)\n", dst, r.Params)
		return nil
	})

	_, err = p.Run(ctx, pipeline.Request{
		SourcePath: input,
		FileName:   filepath.Base(input),
		Kind:       kind,
		Count:      o.count,
	}, sink)
	return err
}

func resolveKind(flag, input string) (metadata.Kind, error) {
	if flag != "" {
		return metadata.ParseKind(flag)
	}
	switch ext := metadata.Ext(input); {
	case metadata.IsEXIFImage(ext), metadata.IsPNG(ext), ext == ".bmp", ext == ".webp":
		return metadata.Photo, nil
	}
	return metadata.Video, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
