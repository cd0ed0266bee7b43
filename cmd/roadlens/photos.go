package main

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	progressbar "github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"roadlens/internal/api"
	"roadlens/internal/config"
)

func newPhotosCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "photos",
		Aliases: []string{"photo"},
		Short:   "Upload, list and remove evidence photos",
	}

	cmd.AddCommand(
		newPhotosUploadCmd(cfg, jsonOutput),
		newPhotosListCmd(cfg, jsonOutput),
		newPhotosLinksCmd(cfg, jsonOutput),
		newPhotosMineCmd(cfg, jsonOutput),
		newPhotosShowCmd(cfg, jsonOutput),
		newPhotosThumbCmd(cfg, jsonOutput),
		newPhotosCapacityCmd(cfg, jsonOutput),
		newPhotosRemoveCmd(cfg, jsonOutput),
		newPhotosPurgeCmd(cfg, jsonOutput),
	)
	return cmd
}

func newPhotosUploadCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		reportID string
		quiet    bool
	)

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload up to five photos, optionally linked to a report",
		Args:  requireUploadFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, closeAll, err := openUploadFiles(args)
			if err != nil {
				return err
			}
			defer closeAll()

			var (
				bar      *uploadProgress
				progress func(sent, total int64)
			)
			if !quiet && !*jsonOutput {
				bar = newUploadProgress(cmd.ErrOrStderr())
				progress = bar.update
			}

			return withClient(cfg, func(client *api.Client) error {
				var (
					resp api.BatchUploadResponse
					err  error
				)
				if strings.TrimSpace(reportID) != "" {
					resp, err = client.UploadReportPhotos(cmd.Context(), reportID, files, progress)
				} else {
					resp, err = client.UploadPhotos(cmd.Context(), files, progress)
				}
				bar.finish()
				if err != nil {
					return reportBatchFailure(err, *jsonOutput)
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				if err := writePlain("uploaded %d photo(s)\n", len(resp.Photos)); err != nil {
					return err
				}
				return writePhotoList(resp.Photos)
			})
		},
	}

	cmd.Flags().StringVarP(&reportID, "report", "r", "", "link the photos to this report")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print upload progress")
	return cmd
}

func newPhotosListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list <report-id>",
		Short: "List photos of a report in display order",
		Args:  requireExactlyArgs(1, "report id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				photos, err := client.ListReportPhotos(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(photos)
				}
				return writePhotoList(photos)
			})
		},
	}
}

func newPhotosMineCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List your photos, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				photos, err := client.ListMyPhotos(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(photos)
				}
				return writePhotoList(photos)
			})
		},
	}
}

func newPhotosLinksCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "links <report-id>",
		Short: "List a report's photo links by display position",
		Args:  requireExactlyArgs(1, "report id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.ListReportLinks(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				if len(resp.Links) == 0 {
					return writePlain("no links\n")
				}
				for _, link := range resp.Links {
					if err := writePlain("%d %s %s %s\n", link.Order, link.PhotoID, link.ID, formatTime(link.CreatedAt)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newPhotosShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <photo-id>",
		Short: "Show one of your photos",
		Args:  requireExactlyArgs(1, "photo id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				photo, err := client.GetPhoto(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(photo)
				}
				return writePhotoDetail(photo)
			})
		},
	}
}

func newPhotosThumbCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var width, height int

	cmd := &cobra.Command{
		Use:   "thumb <photo-id>",
		Short: "Print the thumbnail URL of a photo",
		Args:  requireExactlyArgs(1, "photo id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if width < 0 || height < 0 {
				return errors.New("--width and --height must not be negative")
			}
			return withClient(cfg, func(client *api.Client) error {
				thumb, err := client.Thumbnail(cmd.Context(), args[0], width, height)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(thumb)
				}
				return writePlain("%s\n", thumb.URL)
			})
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "thumbnail width (default: server setting)")
	cmd.Flags().IntVar(&height, "height", 0, "thumbnail height (default: server setting)")
	return cmd
}

func newPhotosCapacityCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "capacity <report-id>",
		Short: "Check whether a report can take more photos",
		Args:  requireExactlyArgs(1, "report id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 0 {
				return errors.New("--count must not be negative")
			}
			return withClient(cfg, func(client *api.Client) error {
				capacity, err := client.ReportCapacity(cmd.Context(), args[0], count)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(capacity)
				}
				verdict := "yes"
				if !capacity.CanAdd {
					verdict = "no"
				}
				return writePlain("report %s: %d/%d photos, %d remaining; can add %d: %s\n",
					capacity.ReportID, capacity.Current, capacity.Max, capacity.Remaining, capacity.Requested, verdict)
			})
		},
	}

	cmd.Flags().IntVar(&count, "count", 1, "number of photos you intend to add")
	return cmd
}

func newPhotosRemoveCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <photo-id>...",
		Aliases: []string{"delete"},
		Short:   "Delete your photos and their report links",
		Args:    requireAtLeastArgs(1, "photo id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				deleted := make([]string, 0, len(args))
				for _, id := range args {
					if err := client.DeletePhoto(cmd.Context(), id); err != nil {
						return fmt.Errorf("delete %s: %w", id, err)
					}
					deleted = append(deleted, id)
					if !*jsonOutput {
						if err := writePlain("deleted %s\n", id); err != nil {
							return err
						}
					}
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"deleted": deleted})
				}
				return nil
			})
		},
	}
}

func newPhotosPurgeCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "purge <report-id>",
		Short: "Remove every photo of a report (admin)",
		Args:  requireExactlyArgs(1, "report id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return errors.New("purge deletes every photo of the report; pass --force to confirm")
			}
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.PurgeReportPhotos(cmd.Context(), args[0])
				if err != nil && resp.ReportID == "" {
					return err
				}
				if *jsonOutput {
					if writeErr := writeJSON(resp); writeErr != nil {
						return writeErr
					}
					return err
				}
				if writeErr := writePlain("report %s: deleted %d photo(s), %d failed\n", resp.ReportID, len(resp.Deleted), len(resp.Failed)); writeErr != nil {
					return writeErr
				}
				for _, failure := range resp.Failed {
					if writeErr := writePlain("  %s: %s\n", failure.PhotoID, failure.Error); writeErr != nil {
						return writeErr
					}
				}
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "confirm the purge")
	return cmd
}

func openUploadFiles(paths []string) ([]api.UploadFile, func(), error) {
	files := make([]api.UploadFile, 0, len(paths))
	closers := make([]io.Closer, 0, len(paths))
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, f)
		info, err := f.Stat()
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		if info.IsDir() {
			closeAll()
			return nil, nil, fmt.Errorf("%s is a directory", path)
		}
		files = append(files, api.UploadFile{
			Name:        filepath.Base(path),
			ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
			Body:        f,
		})
	}
	return files, closeAll, nil
}

// reportBatchFailure prints which photos made it before a batch stopped.
func reportBatchFailure(err error, jsonOutput bool) error {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Batch == nil {
		return err
	}
	batch := apiErr.Batch
	if jsonOutput {
		if writeErr := writeJSON(batch); writeErr != nil {
			return writeErr
		}
		return err
	}
	if len(batch.Completed) > 0 {
		if writeErr := writePlain("uploaded %d photo(s) before the failure:\n", len(batch.Completed)); writeErr != nil {
			return writeErr
		}
		if writeErr := writePhotoList(batch.Completed); writeErr != nil {
			return writeErr
		}
	}
	if len(batch.PendingFiles) > 0 {
		if writeErr := writePlain("not uploaded: %s\n", strings.Join(batch.PendingFiles, ", ")); writeErr != nil {
			return writeErr
		}
	}
	return err
}

// uploadProgress renders one bar for the whole multipart body. The bar is
// created on the first callback because the body size is known only then.
type uploadProgress struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func newUploadProgress(w io.Writer) *uploadProgress {
	return &uploadProgress{w: w}
}

func (p *uploadProgress) update(sent, total int64) {
	if total <= 0 {
		return
	}
	if p.bar == nil {
		p.bar = progressbar.New64(total).SetWriter(p.w).Set(progressbar.Bytes, true)
		p.bar.Start()
	}
	p.bar.SetCurrent(sent)
}

// finish is safe on a nil receiver and after a previous finish.
func (p *uploadProgress) finish() {
	if p == nil || p.bar == nil {
		return
	}
	p.bar.Finish()
	p.bar = nil
}
