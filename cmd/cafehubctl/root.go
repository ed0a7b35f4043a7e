package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dalemusser/cafehub/internal/app/resources"
	"github.com/dalemusser/cafehub/internal/app/system/apiclient"
	"github.com/dalemusser/cafehub/internal/app/system/uploader"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	apiURL  string
	bucket  string
	timeout time.Duration
	verbose bool
	out     io.Writer
}

func (o *options) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func (o *options) client() *apiclient.Client {
	return apiclient.New(o.apiURL, o.logger())
}

func (o *options) uploader(c *apiclient.Client) *uploader.Uploader {
	return uploader.New(c.HTTPClient(), c.BaseURL(), o.logger(), uploader.WithBucket(o.bucket))
}

func (o *options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

// endpoint resolves a resource name (as used in /admin/<name>) to its
// backend collection.
func endpoint(name string) (string, error) {
	reg, err := resources.LoadDescriptors()
	if err != nil {
		return "", err
	}
	d, ok := reg.Get(name)
	if !ok {
		names := make([]string, 0, len(reg.All()))
		for _, d := range reg.All() {
			names = append(names, d.Name)
		}
		return "", fmt.Errorf("unknown resource %q (known: %v)", name, names)
	}
	return d.Endpoint, nil
}

func newRootCmd(out io.Writer) *cobra.Command {
	o := &options{out: out}

	root := &cobra.Command{
		Use:   "cafehubctl",
		Short: "Operate the café backend from the command line",
		Long: `cafehubctl speaks the café backend's REST envelope directly.

Resources are named as in the back office: productos, senas, meseros,
condiciones, candidatos, publicaciones, talleres, usuarios, productos-tienda.`,
		SilenceUsage: true,
	}

	defaultURL := os.Getenv("CAFEHUB_API_BASE_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}
	root.PersistentFlags().StringVar(&o.apiURL, "api", defaultURL, "Backend REST root (or set CAFEHUB_API_BASE_URL)")
	root.PersistentFlags().StringVar(&o.bucket, "bucket", os.Getenv("CAFEHUB_FILES_BUCKET"), "Storage bucket for uploads")
	root.PersistentFlags().DurationVar(&o.timeout, "timeout", 30*time.Second, "Request timeout")
	root.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "Log requests to stderr")

	root.AddCommand(
		newListCmd(o),
		newGetCmd(o),
		newDeleteCmd(o),
		newUploadCmd(o),
		newAssignSenaCmd(o),
	)
	return root
}
