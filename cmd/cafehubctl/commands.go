package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/dalemusser/cafehub/internal/app/system/apiclient"
	"github.com/dalemusser/cafehub/internal/app/system/uploader"
	"github.com/spf13/cobra"
)

func newListCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list <resource>",
		Short: "Print every record of a resource as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ep, err := endpoint(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := o.context(cmd)
			defer cancel()
			return printResult(o, o.client().Call(ctx, http.MethodGet, ep, nil))
		},
	}
}

func newGetCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <resource> <id>",
		Short: "Print one record as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ep, err := endpoint(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := o.context(cmd)
			defer cancel()
			return printResult(o, o.client().Call(ctx, http.MethodGet, ep+"/"+url.PathEscape(args[1]), nil))
		},
	}
}

func newDeleteCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <resource> <id>",
		Short: "Delete one record",
		Long: `Delete one record. Deleting a seña also removes its stored video once
the record itself is gone.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, key := args[0], args[1]
			ep, err := endpoint(name)
			if err != nil {
				return err
			}
			ctx, cancel := o.context(cmd)
			defer cancel()
			c := o.client()

			if name == "senas" {
				admin := apiclient.NewAdmin(c)
				s, err := admin.Senas.Get(ctx, key)
				if err != nil {
					return err
				}
				if err := admin.Senas.Delete(ctx, key); err != nil {
					return err
				}
				fmt.Fprintf(o.out, "deleted %s/%s\n", name, key)
				if s.Video != "" && !uploader.IsLegacyInline(s.Video) {
					if err := o.uploader(c).Delete(ctx, s.Video); err != nil {
						return fmt.Errorf("record deleted but video %s was not: %w", s.Video, err)
					}
					fmt.Fprintf(o.out, "deleted video %s\n", s.Video)
				}
				return nil
			}

			res := c.Call(ctx, http.MethodDelete, ep+"/"+url.PathEscape(key), nil)
			if !res.Success {
				return res.AsError()
			}
			fmt.Fprintf(o.out, "deleted %s/%s\n", name, key)
			return nil
		},
	}
}

func newUploadCmd(o *options) *cobra.Command {
	var (
		folder string
		accept string
		maxMB  int
	)
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file to backend storage and print its reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			st, err := f.Stat()
			if err != nil {
				return err
			}
			ct, err := uploader.Sniff(f)
			if err != nil {
				return err
			}

			ctx, cancel := o.context(cmd)
			defer cancel()
			ref, err := o.uploader(o.client()).Upload(ctx, uploader.File{
				Name:        filepath.Base(args[0]),
				ContentType: ct,
				Size:        st.Size(),
				Body:        f,
			}, uploader.Options{Accept: accept, MaxSizeMB: maxMB, Folder: folder}, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(o.out, ref)
			return nil
		},
	}
	cmd.Flags().StringVar(&folder, "folder", uploader.DefaultFolder, "Storage folder")
	cmd.Flags().StringVar(&accept, "accept", "*/*", "Accepted MIME pattern")
	cmd.Flags().IntVar(&maxMB, "max-mb", uploader.DefaultMaxSizeMB, "Size limit in MB")
	return cmd
}

func newAssignSenaCmd(o *options) *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "assign-sena <product-id> [sena-id]",
		Short: "Link a product to a sign-language video, or unlink it with --remove",
		Args: func(cmd *cobra.Command, args []string) error {
			if remove {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := o.context(cmd)
			defer cancel()
			admin := apiclient.NewAdmin(o.client())

			if remove {
				if err := admin.RemoveSena(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(o.out, "product %s has no seña\n", args[0])
				return nil
			}
			p, err := admin.AssignSena(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(o.out, "product %s (%s) linked to seña %s\n", p.Key(), p.Nombre, args[1])
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "Unlink the product's seña")
	return cmd
}

// printResult writes the data of a successful call as indented JSON.
func printResult(o *options, res apiclient.Result) error {
	if !res.Success {
		return res.AsError()
	}
	data := res.Data
	if len(bytes.TrimSpace(data)) == 0 {
		data = json.RawMessage("null")
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(o.out)
	return err
}
