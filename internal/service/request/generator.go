package request

import (
	"context"
	"fmt"
	"time"

	wrap "github.com/Dias-T/tow-dispatch-system/pkg/logger/wrapper"
)

// создать уникальный номер заявки
func (s *Lifecycle) generateRequestNumber(ctx context.Context) (string, error) {
	now := time.Now()
	datePart := now.Format("20060102")

	count, err := s.requests.CountByDate(ctx, now)
	if err != nil {
		return "", wrap.Error(ctx, err)
	}
	nextSequence := count + 1
	return fmt.Sprintf("TOW_%s_%03d", datePart, nextSequence), nil
}
