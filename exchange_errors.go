package connect

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// ExchangeError captures a normalized provider token-endpoint failure.
type ExchangeError struct {
	Platform    Platform
	Operation   string
	Status      int
	Code        string
	Description string
	Err         error
	Raw         map[string]any
}

func (e *ExchangeError) Error() string {
	if e == nil {
		return "exchange error"
	}

	scope := "exchange"
	if e.Platform != "" && e.Operation != "" {
		scope = fmt.Sprintf("%s %s", e.Platform, e.Operation)
	} else if e.Platform != "" {
		scope = string(e.Platform)
	} else if e.Operation != "" {
		scope = e.Operation
	}

	if e.Description != "" {
		return fmt.Sprintf("%s failed: %s", scope, e.Description)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s failed: %s", scope, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", scope, e.Err)
	}

	return fmt.Sprintf("%s failed", scope)
}

func (e *ExchangeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Message returns the most useful human-readable reason a frontend can show.
func (e *ExchangeError) Message() string {
	if e == nil {
		return "token_exchange_failed"
	}
	if e.Description != "" {
		return e.Description
	}
	if e.Code != "" {
		return e.Code
	}
	return "token_exchange_failed"
}

func (e *ExchangeError) Metadata() map[string]any {
	if e == nil {
		return nil
	}

	meta := map[string]any{}
	if e.Platform != "" {
		meta["platform"] = string(e.Platform)
	}
	if e.Operation != "" {
		meta["operation"] = e.Operation
	}
	if e.Status != 0 {
		meta["status"] = e.Status
	}
	if e.Code != "" {
		meta["code"] = e.Code
	}
	if e.Description != "" {
		meta["description"] = e.Description
	}
	if len(e.Raw) > 0 {
		meta["raw"] = e.Raw
	}

	return meta
}

func wrapExchangeError(base *goerrors.Error, platform Platform, operation string, err error) error {
	if base == nil {
		return err
	}

	meta := map[string]any{}
	if platform != "" {
		meta["platform"] = string(platform)
	}
	if operation != "" {
		meta["operation"] = operation
	}

	var xerr *ExchangeError
	if errors.As(err, &xerr) && xerr != nil {
		for k, v := range xerr.Metadata() {
			meta[k] = v
		}
	} else if err != nil {
		meta["error"] = err.Error()
	}

	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if err != nil {
		clone.Source = err
	}
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}

	return clone
}
