package fulfillment

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"bindery/internal/adept"
	"bindery/internal/config"
	"bindery/internal/drm"
	"bindery/internal/epub"
	"bindery/internal/logging"
	"bindery/internal/queue"
	"bindery/internal/runner"
	"bindery/internal/services"
	"bindery/internal/sniff"
	"bindery/internal/textutil"
)

// Job carries the state of one fulfillment run through the state machine.
// The exported fields mirror what the queue persists per transition.
type Job struct {
	RequestPath string
	Status      queue.Status
	Title       string
	Format      sniff.Format
	Classified  bool
	OutputPath  string
	RightsBuilt bool

	artifact    []byte
	reply       []byte
	rights      []byte
	downloadURL string
	tmpPath     string
}

// Observer sees the job after every state transition. The workflow manager
// uses it to persist queue items; interactive runs pass nil.
type Observer func(job *Job)

// Fulfiller executes fulfillment workflows.
type Fulfiller struct {
	cfg     *config.Config
	client  *adept.Client
	patcher drm.DocumentPatcher
	logger  *slog.Logger
}

// New constructs a Fulfiller. The patcher may be nil when no PDF patch
// implementation is linked in; PDF fulfillments then fail with a clear
// message instead of crashing.
func New(cfg *config.Config, client *adept.Client, patcher drm.DocumentPatcher, logger *slog.Logger) *Fulfiller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Fulfiller{
		cfg:     cfg,
		client:  client,
		patcher: patcher,
		logger:  logging.NewComponentLogger(logger, "fulfillment"),
	}
}

// Run drives a license request artifact to a terminal outcome. Progress
// messages emitted before a failure are never rolled back.
func (f *Fulfiller) Run(ctx context.Context, requestPath string, report runner.Reporter, observe Observer) runner.Outcome {
	job := &Job{RequestPath: requestPath, Status: queue.StatusPending}
	notify := func() {
		if observe != nil {
			observe(job)
		}
	}

	for {
		var err error
		switch job.Status {
		case queue.StatusPending:
			err = f.readRequest(job, report)
		case queue.StatusRequesting:
			err = f.submit(ctx, job, report)
		case queue.StatusParsing:
			err = f.parseReply(job)
		case queue.StatusBuildingRights:
			err = f.buildRights(job)
		case queue.StatusDownloading:
			err = f.download(ctx, job, report)
		case queue.StatusClassifying:
			err = f.classify(job)
		case queue.StatusFinalizing:
			err = f.finalize(job, report)
		case queue.StatusCompleted:
			filename := filepath.Base(job.OutputPath)
			return runner.Succeeded(fmt.Sprintf("Successfully fulfilled: %s", filename), job.OutputPath)
		default:
			err = services.Wrap(nil, "fulfilling", "dispatch", fmt.Sprintf("Error: unexpected job status %q", job.Status), nil)
		}

		if err != nil {
			job.Status = queue.StatusFailed
			notify()
			f.logger.Error("fulfillment failed",
				logging.Error(err),
				logging.String(logging.FieldStage, string(job.Status)),
				logging.String("request_path", job.RequestPath),
			)
			return runner.Failed(services.Message(err))
		}
		notify()
	}
}

func (f *Fulfiller) readRequest(job *Job, report runner.Reporter) error {
	report.Progress("Reading ACSM file...")
	artifact, err := os.ReadFile(job.RequestPath)
	if err != nil {
		return services.Wrap(services.ErrParse, "fulfilling", "read request", fmt.Sprintf("Failed to read ACSM file: %v", err), err)
	}
	job.artifact = artifact
	job.Status = queue.StatusRequesting
	return nil
}

func (f *Fulfiller) submit(ctx context.Context, job *Job, report runner.Reporter) error {
	report.Progress("Fulfilling book...")
	reply, err := f.client.Submit(ctx, job.artifact)
	if err != nil {
		return err
	}
	job.reply = reply
	job.Status = queue.StatusParsing
	return nil
}

func (f *Fulfiller) parseReply(job *Job) error {
	ful, err := adept.ParseFulfillment(job.reply)
	if err != nil {
		return err
	}
	job.Title = ful.Title
	job.downloadURL = ful.DownloadURL
	job.rights = ful.LicenseToken
	job.Status = queue.StatusBuildingRights
	return nil
}

func (f *Fulfiller) buildRights(job *Job) error {
	rights, err := adept.BuildRights(job.rights)
	if err != nil {
		return err
	}
	job.rights = rights
	job.RightsBuilt = true
	job.Status = queue.StatusDownloading
	return nil
}

func (f *Fulfiller) download(ctx context.Context, job *Job, report runner.Reporter) error {
	report.Progress("Downloading book...")
	name := textutil.SanitizeFileName(job.Title)
	job.tmpPath = filepath.Join(f.cfg.Paths.LibraryDir, name+".tmp")

	status, err := f.client.Download(ctx, job.downloadURL, job.tmpPath)
	if err != nil {
		return err
	}
	if status != 200 {
		return services.Wrap(services.ErrDownload, "fulfilling", "download", fmt.Sprintf("Download failed with error %d", status), nil)
	}
	job.Status = queue.StatusClassifying
	return nil
}

func (f *Fulfiller) classify(job *Job) error {
	file, err := os.Open(job.tmpPath)
	if err != nil {
		return services.Wrap(services.ErrDownload, "fulfilling", "inspect download", fmt.Sprintf("Failed to inspect download: %v", err), err)
	}
	defer file.Close()

	prefix := make([]byte, sniff.PrefixLen)
	n, _ := file.Read(prefix)
	job.Format = sniff.Classify(prefix[:n])
	job.Classified = true
	job.Status = queue.StatusFinalizing
	return nil
}

func (f *Fulfiller) finalize(job *Job, report runner.Reporter) error {
	name := textutil.SanitizeFileName(job.Title)
	finalPath := filepath.Join(f.cfg.Paths.LibraryDir, name+job.Format.Ext())
	if err := os.Rename(job.tmpPath, finalPath); err != nil {
		return services.Wrap(services.ErrDownload, "fulfilling", "rename download", fmt.Sprintf("Error: %v", err), err)
	}
	job.OutputPath = finalPath
	filename := filepath.Base(finalPath)

	switch job.Format {
	case sniff.FormatEPUB:
		if err := epub.EmbedRights(finalPath, job.rights); err != nil {
			return err
		}
		report.Progress(fmt.Sprintf("File fulfilled: %s", filename))
	case sniff.FormatPDF:
		report.Progress("Patching PDF encryption...")
		if err := f.patchDocument(job, finalPath, filename); err != nil {
			return err
		}
	default:
		if !f.cfg.Fulfillment.KeepUnknownDownloads {
			_ = os.Remove(finalPath)
			job.OutputPath = ""
		}
		return services.Wrap(services.ErrUnsupported, "fulfilling", "classify", "Unsupported file type", nil)
	}

	job.Status = queue.StatusCompleted
	return nil
}

// patchDocument rewrites the downloaded PDF with the rights bound into its
// encryption dictionary. The patch reads from a renamed copy and writes the
// final path; the copy is removed whether or not the patch succeeds.
func (f *Fulfiller) patchDocument(job *Job, finalPath, filename string) error {
	if f.patcher == nil {
		return services.Wrap(services.ErrPatch, "fulfilling", "patch document", "PDF patcher not available", nil)
	}

	resource, err := adept.ExtractResource(job.rights)
	if err != nil {
		return err
	}

	tmpCopy := filepath.Join(filepath.Dir(finalPath), "tmp_"+filename)
	if err := os.Rename(finalPath, tmpCopy); err != nil {
		return services.Wrap(services.ErrPatch, "fulfilling", "patch document", fmt.Sprintf("Failed to patch PDF: %s", filename), err)
	}

	ok := f.patcher(tmpCopy, job.rights, resource, finalPath)
	_ = os.Remove(tmpCopy)

	if !ok {
		return services.Wrap(services.ErrPatch, "fulfilling", "patch document", fmt.Sprintf("Failed to patch PDF: %s", filename), nil)
	}
	return nil
}
