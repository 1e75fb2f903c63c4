package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTimeout bounds a single vision call.
const DefaultTimeout = 30 * time.Second

// Identifier turns an image into food observations. It never returns an error:
// upstream failures become a Result with Success=false.
type Identifier struct {
	model   Model
	timeout time.Duration
}

func NewIdentifier(model Model, timeout time.Duration) *Identifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Identifier{
		model:   model,
		timeout: timeout,
	}
}

// Identify sends the image to the model and parses its reply, falling back to
// keyword extraction when the reply is not valid JSON.
func (i *Identifier) Identify(ctx context.Context, img Image) Result {
	if len(img.Data) == 0 {
		return failed("empty image")
	}
	if img.MediaType == "" {
		img.MediaType = "image/jpeg"
	}

	slog.Info("VISION: Identifying foods", "media_type", img.MediaType, "bytes", len(img.Data))

	callCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	start := time.Now()
	raw, err := i.model.Describe(callCtx, NewRequest(img))
	if err != nil {
		msg := err.Error()
		switch {
		case ctx.Err() != nil:
			msg = fmt.Sprintf("request cancelled: %v", ctx.Err())
		case errors.Is(callCtx.Err(), context.DeadlineExceeded):
			msg = fmt.Sprintf("vision model timed out after %s", i.timeout)
		}
		slog.Error("VISION: Model call failed", "error", err, "elapsed", time.Since(start))
		return failed(msg)
	}

	slog.Info("VISION: Model replied", "raw_len", len(raw), "elapsed", time.Since(start))

	foods, err := Parse(raw)
	if err != nil {
		obs, rule := Fallback(raw)
		slog.Warn("VISION: Response was not valid JSON, using keyword fallback", "rule", rule, "error", err)
		return Result{
			Success:     true,
			Foods:       []FoodObservation{obs},
			TotalFound:  1,
			RawResponse: raw,
			Fallback:    true,
		}
	}

	slog.Info("VISION: Parsed observations", "count", len(foods))
	return Result{
		Success:     true,
		Foods:       foods,
		TotalFound:  len(foods),
		RawResponse: raw,
	}
}

func failed(msg string) Result {
	return Result{
		Success: false,
		Foods:   []FoodObservation{},
		Error:   msg,
	}
}
