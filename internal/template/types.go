package template

import (
	"context"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	TemplateSource interface {
		Fetch(ctx context.Context) (*model.BlockTemplate, error)
	}
	TemplateWriter interface {
		Update(tpl *model.BlockTemplate) (uint64, error)
	}
	TemplateReader interface {
		GetLatest(out *model.BlockTemplate) (uint64, error)
		IsNewer(known uint64) bool
	}
	ProducerMetrics interface {
		ObserveRefresh(trigger string, err error, started time.Time)
		SetTemplate(version, height uint64)
	}
)
