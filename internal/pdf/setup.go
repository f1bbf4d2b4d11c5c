package pdf

import (
	"time"

	"go.uber.org/zap"

	"github.com/diewo77/go-facturas/internal/config"
)

// NewFromConfig wires the renderer chosen by cfg with an S3 presigner.
func NewFromConfig(pdfCfg config.PDFConfig, storage config.StorageConfig) (*Service, error) {
	sess, err := NewSession(storage)
	if err != nil {
		return nil, err
	}
	var renderer Renderer
	if pdfCfg.FunctionURL != "" {
		renderer = NewRemoteRenderer(pdfCfg, storage)
		zap.L().Info("pdf renderer: remote function", zap.String("url", pdfCfg.FunctionURL))
	} else {
		renderer = NewLocalRenderer(NewS3Uploader(sess), storage.Bucket)
		zap.L().Info("pdf renderer: local", zap.String("bucket", storage.Bucket))
	}
	ttl := time.Duration(storage.PresignMinutes) * time.Minute
	return NewService(renderer, NewS3Presigner(sess), ttl), nil
}
