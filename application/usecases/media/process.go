package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path"
	"path/filepath"

	"github.com/fanserve/media-api/domain/model"
	"github.com/fanserve/media-api/infrastructure/events"
	"github.com/fanserve/media-api/infrastructure/storage"
	"github.com/fanserve/media-api/infrastructure/transcode"
	"go.uber.org/zap"
)

// Job channels. One channel per media kind; the pipeline subscribes to its
// own channels, so enqueue calls return without waiting on conversion.
const (
	ChannelProcessVideo = "media:process:video"
	ChannelProcessAudio = "media:process:audio"
	ChannelProcessPhoto = "media:process:photo"

	subscriberLabel = "media-pipeline"
)

// CompletionNotice names a caller channel that receives one event per job
// regardless of outcome, carrying the caller's correlation metadata.
type CompletionNotice struct {
	Channel   string         `json:"channel"`
	EventName string         `json:"eventName"`
	Meta      map[string]any `json:"meta,omitempty"`
}

type ProcessVideoOptions struct {
	Count  int            `json:"count"`
	Size   ThumbnailSize  `json:"size"`
	Notice *CompletionNotice `json:"notice,omitempty"`
}

type ProcessAudioOptions struct {
	Notice *CompletionNotice `json:"notice,omitempty"`
}

type ProcessPhotoOptions struct {
	ThumbnailSize ThumbnailSize     `json:"thumbnailSize"`
	Notice        *CompletionNotice `json:"notice,omitempty"`
}

type videoJob struct {
	Record  model.FileRecord    `json:"record"`
	Options ProcessVideoOptions `json:"options"`
}

type audioJob struct {
	Record  model.FileRecord    `json:"record"`
	Options ProcessAudioOptions `json:"options"`
}

type photoJob struct {
	Record  model.FileRecord    `json:"record"`
	Options ProcessPhotoOptions `json:"options"`
}

func (uc *mediaUseCase) subscribe() error {
	if err := uc.Bus.Subscribe(ChannelProcessVideo, subscriberLabel, uc.handleProcessVideo); err != nil {
		return err
	}
	if err := uc.Bus.Subscribe(ChannelProcessAudio, subscriberLabel, uc.handleProcessAudio); err != nil {
		return err
	}
	return uc.Bus.Subscribe(ChannelProcessPhoto, subscriberLabel, uc.handleProcessPhoto)
}

// queueGuard loads the record and applies the duplicate-dispatch guard.
// The read-then-publish window is not atomic against a concurrent queue
// call for the same file; the handler's claim drops the loser.
func (uc *mediaUseCase) queueGuard(ctx context.Context, id model.ID) (*model.FileRecord, bool, error) {
	record, err := uc.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if record.Status == model.StatusProcessing {
		return nil, false, nil
	}
	return record, true, nil
}

func (uc *mediaUseCase) publishJob(ctx context.Context, channel, name string, record *model.FileRecord, payload any) (bool, error) {
	if _, err := uc.Repo.TransitionStatus(ctx, record.ID, model.StatusPending,
		model.StatusUploaded, model.StatusFinished, model.StatusError); err != nil {
		return false, err
	}

	event, err := events.NewEvent(name, payload)
	if err != nil {
		return false, err
	}
	if err := uc.Bus.Publish(ctx, channel, event); err != nil {
		return false, err
	}
	return true, nil
}

// QueueProcessVideo dispatches an async conversion and returns immediately.
// Returns false, without error, when the file is already processing.
func (uc *mediaUseCase) QueueProcessVideo(ctx context.Context, id model.ID, opts ProcessVideoOptions) (bool, error) {
	record, ok, err := uc.queueGuard(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	return uc.publishJob(ctx, ChannelProcessVideo, "processVideo", record, videoJob{Record: *record, Options: opts})
}

func (uc *mediaUseCase) QueueProcessAudio(ctx context.Context, id model.ID, opts ProcessAudioOptions) (bool, error) {
	record, ok, err := uc.queueGuard(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	return uc.publishJob(ctx, ChannelProcessAudio, "processAudio", record, audioJob{Record: *record, Options: opts})
}

func (uc *mediaUseCase) QueueProcessPhoto(ctx context.Context, id model.ID, opts ProcessPhotoOptions) (bool, error) {
	record, ok, err := uc.queueGuard(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	return uc.publishJob(ctx, ChannelProcessPhoto, "processPhoto", record, photoJob{Record: *record, Options: opts})
}

// claim atomically moves the record into Processing. A false return means
// another delivery of the same job already owns or already finished it;
// at-least-once delivery makes this a normal occurrence, not an error.
// Finished and Error are not claimable: a re-queue goes through publishJob,
// which moves the record back to Pending first.
func (uc *mediaUseCase) claim(ctx context.Context, id model.ID) bool {
	ok, err := uc.Repo.TransitionStatus(ctx, id, model.StatusProcessing,
		model.StatusUploaded, model.StatusPending)
	if err != nil {
		uc.Logger.Error("failed to claim job", zap.String("fileId", id.String()), zap.Error(err))
		return false
	}
	if !ok {
		uc.Logger.Warn("duplicate job dropped", zap.String("fileId", id.String()))
	}
	return ok
}

// fail commits a status-only failure; path and thumbnails keep their
// pre-job values.
func (uc *mediaUseCase) fail(ctx context.Context, id model.ID, jobErr error) {
	uc.Logger.Error("media job failed", zap.String("fileId", id.String()), zap.Error(jobErr))
	err := uc.Repo.UpdateFields(ctx, id, map[string]any{
		"status": model.StatusError,
		"error":  jobErr.Error(),
	})
	if err != nil {
		uc.Logger.Error("failed to record job failure", zap.String("fileId", id.String()), zap.Error(err))
	}
}

// notify publishes the caller's completion event. Runs once per job
// regardless of outcome so owners can react without polling.
func (uc *mediaUseCase) notify(ctx context.Context, notice *CompletionNotice, id model.ID) {
	if notice == nil || notice.Channel == "" {
		return
	}

	payload := map[string]any{"fileId": id}
	for k, v := range notice.Meta {
		payload[k] = v
	}

	event, err := events.NewEvent(notice.EventName, payload)
	if err != nil {
		uc.Logger.Error("failed to build completion event", zap.Error(err))
		return
	}
	if err := uc.Bus.Publish(ctx, notice.Channel, event); err != nil {
		uc.Logger.Error("failed to publish completion event",
			zap.String("channel", notice.Channel), zap.Error(err))
	}
}

// resultFields collects the columns a job rewrites on success. RefItems
// never appears here: the job carries a snapshot taken at enqueue time, and
// refs added while the conversion ran must survive the commit.
func resultFields(record *model.FileRecord) map[string]any {
	return map[string]any{
		"name":          record.Name,
		"mime_type":     record.MimeType,
		"size":          record.Size,
		"server":        record.Server,
		"path":          record.Path,
		"absolute_path": record.AbsolutePath,
		"metadata":      record.Metadata,
		"duration":      record.Duration,
		"status":        model.StatusFinished,
		"error":         "",
	}
}

// resolveSource locates the staging file, preferring the canonical
// absolute path over the public-dir-relative one.
func (uc *mediaUseCase) resolveSource(record *model.FileRecord) (string, error) {
	if record.AbsolutePath != "" {
		if p, ok := uc.Local.Resolve(record.AbsolutePath); ok {
			return p, nil
		}
	}
	if p, ok := uc.Local.Resolve(record.Path); ok {
		return p, nil
	}
	return "", fmt.Errorf("source file missing for %s", record.ID)
}

func (uc *mediaUseCase) handleProcessVideo(ctx context.Context, event *events.Event) {
	var job videoJob
	if err := event.Decode(&job); err != nil {
		uc.Logger.Error("undecodable video job", zap.Error(err))
		return
	}
	id := job.Record.ID
	if !uc.claim(ctx, id) {
		return
	}
	defer uc.notify(ctx, job.Options.Notice, id)

	if err := uc.processVideo(ctx, &job); err != nil {
		uc.fail(ctx, id, err)
	}
}

func (uc *mediaUseCase) processVideo(ctx context.Context, job *videoJob) error {
	record := &job.Record
	src, err := uc.resolveSource(record)
	if err != nil {
		return err
	}

	meta, err := uc.Video.Probe(src)
	if err != nil {
		return err
	}

	converted, err := uc.Video.Convert(src)
	if err != nil {
		return err
	}
	staging := []string{converted.OutputPath}
	defer func() { removeAll(staging) }()

	count := job.Options.Count
	if count <= 0 {
		count = 1
	}
	thumbNames, err := uc.Video.CreateThumbnails(src, transcode.ThumbnailOptions{
		Count:     count,
		Width:     job.Options.Size.Width,
		Height:    job.Options.Size.Height,
		OutputDir: filepath.Dir(converted.OutputPath),
	})
	if err != nil {
		return err
	}
	for _, n := range thumbNames {
		staging = append(staging, filepath.Join(filepath.Dir(converted.OutputPath), n))
	}

	backend := uc.Selector.Pick(ctx, record.Server)
	key := path.Join("video", converted.OutputName)

	result, err := uploadFile(ctx, backend, key, record.ACL, converted.OutputPath, "video/mp4")
	if err != nil {
		return err
	}

	thumbs := make([]model.Thumbnail, 0, len(thumbNames))
	for _, name := range thumbNames {
		thumbPath := filepath.Join(filepath.Dir(converted.OutputPath), name)
		thumbKey := path.Join("video", "thumbnails", name)
		thumbResult, err := uploadFile(ctx, backend, thumbKey, record.ACL, thumbPath, "image/jpeg")
		if err != nil {
			return err
		}
		thumbs = append(thumbs, thumbnailEntry(backend.Type(), thumbKey, thumbPath, thumbResult))
	}

	width, height := meta.Width, meta.Height
	if meta.Rotation == 90 || meta.Rotation == 270 {
		width, height = height, width
	}

	record.Name = converted.OutputName
	record.MimeType = "video/mp4"
	record.Server = backend.Type()
	record.Duration = meta.Duration
	uc.applyUploadResult(record, backend.Type(), key, result)
	if newSize := fileSize(converted.OutputPath); newSize > 0 {
		record.Size = newSize
	}

	fields := resultFields(record)
	fields["thumbnails"] = thumbs
	fields["width"] = width
	fields["height"] = height
	if err := uc.Repo.UpdateFields(ctx, record.ID, fields); err != nil {
		return err
	}

	// The staging source is no longer referenced by the record.
	_ = os.Remove(src)
	return nil
}

func (uc *mediaUseCase) handleProcessAudio(ctx context.Context, event *events.Event) {
	var job audioJob
	if err := event.Decode(&job); err != nil {
		uc.Logger.Error("undecodable audio job", zap.Error(err))
		return
	}
	id := job.Record.ID
	if !uc.claim(ctx, id) {
		return
	}
	defer uc.notify(ctx, job.Options.Notice, id)

	if err := uc.processAudio(ctx, &job); err != nil {
		uc.fail(ctx, id, err)
	}
}

func (uc *mediaUseCase) processAudio(ctx context.Context, job *audioJob) error {
	record := &job.Record
	src, err := uc.resolveSource(record)
	if err != nil {
		return err
	}

	outputPath := src
	outputName := record.Name
	mimeType := record.MimeType
	converted := false

	if uc.Audio.NeedsConvert(record.MimeType) {
		result, err := uc.Audio.Convert(src)
		if err != nil {
			return err
		}
		outputPath = result.OutputPath
		outputName = result.OutputName
		mimeType = transcode.TargetAudioMime
		converted = true
		defer func() { _ = os.Remove(result.OutputPath) }()
	}

	meta, err := uc.Audio.Probe(outputPath)
	if err != nil {
		return err
	}

	backend := uc.Selector.Pick(ctx, record.Server)
	key := path.Join("audio", outputName)
	result, err := uploadFile(ctx, backend, key, record.ACL, outputPath, mimeType)
	if err != nil {
		return err
	}

	record.Name = outputName
	record.MimeType = mimeType
	record.Server = backend.Type()
	record.Duration = meta.Duration
	uc.applyUploadResult(record, backend.Type(), key, result)
	if newSize := fileSize(outputPath); newSize > 0 {
		record.Size = newSize
	}

	if err := uc.Repo.UpdateFields(ctx, record.ID, resultFields(record)); err != nil {
		return err
	}

	if converted || outputPath != src {
		_ = os.Remove(src)
	} else if record.AbsolutePath != src {
		_ = os.Remove(src)
	}
	return nil
}

func (uc *mediaUseCase) handleProcessPhoto(ctx context.Context, event *events.Event) {
	var job photoJob
	if err := event.Decode(&job); err != nil {
		uc.Logger.Error("undecodable photo job", zap.Error(err))
		return
	}
	id := job.Record.ID
	if !uc.claim(ctx, id) {
		return
	}
	defer uc.notify(ctx, job.Options.Notice, id)

	if err := uc.processPhoto(ctx, &job); err != nil {
		uc.fail(ctx, id, err)
	}
}

func (uc *mediaUseCase) processPhoto(ctx context.Context, job *photoJob) error {
	record := &job.Record
	src, err := uc.resolveSource(record)
	if err != nil {
		return err
	}

	// EXIF is stripped before any public distribution.
	stripped, err := uc.Image.StripMetadata(src, record.MimeType)
	if err != nil {
		return err
	}

	thumbData, err := uc.Image.CreateThumbnail(src, job.Options.ThumbnailSize.Width, job.Options.ThumbnailSize.Height)
	if err != nil {
		return err
	}

	backend := uc.Selector.Pick(ctx, record.Server)
	key := path.Join("photos", record.Name)

	result, err := backend.Upload(ctx, key, record.ACL, bytes.NewReader(stripped), record.MimeType)
	if err != nil {
		return err
	}

	thumbKey := thumbnailKey(key)
	thumbResult, err := backend.Upload(ctx, thumbKey, record.ACL, bytes.NewReader(thumbData), "image/jpeg")
	if err != nil {
		return err
	}
	thumb := model.Thumbnail{Size: int64(len(thumbData))}
	if backend.Type() == model.StorageS3 {
		thumb.Path = thumbResult.Location
		thumb.AbsolutePath = thumbKey
	} else {
		thumb.Path = thumbKey
		thumb.AbsolutePath = thumbResult.Location
	}

	width, height := 0, 0
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(stripped)); err == nil {
		width, height = cfg.Width, cfg.Height
	}

	record.Server = backend.Type()
	record.Size = int64(len(stripped))
	uc.applyUploadResult(record, backend.Type(), key, result)

	fields := resultFields(record)
	fields["thumbnails"] = []model.Thumbnail{thumb}
	fields["width"] = width
	fields["height"] = height
	if err := uc.Repo.UpdateFields(ctx, record.ID, fields); err != nil {
		return err
	}

	if record.AbsolutePath != src {
		_ = os.Remove(src)
	}
	return nil
}

func uploadFile(ctx context.Context, backend storage.Backend, key string, acl model.ACL, filePath, mimeType string) (*storage.UploadResult, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return backend.Upload(ctx, key, acl, f, mimeType)
}

func thumbnailEntry(server model.StorageType, key, localPath string, result *storage.UploadResult) model.Thumbnail {
	thumb := model.Thumbnail{Size: fileSize(localPath)}
	if server == model.StorageS3 {
		thumb.Path = result.Location
		thumb.AbsolutePath = key
	} else {
		thumb.Path = key
		thumb.AbsolutePath = result.Location
	}
	return thumb
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func removeAll(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
