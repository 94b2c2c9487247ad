package validate

import (
	"github.com/coolbeans/qcmbank/pkg/extract"
)

// CheckDocument parses source with hints and runs the default gates over
// the outcome.
func CheckDocument(path string, source []byte, hints extract.Hints, config *ValidationConfig) *GateReport {
	ctx := &ValidationContext{SourcePath: path, Source: source, Config: config}

	result, err := extract.Parse(string(source), hints)
	if err == nil {
		ctx.Result = result
	}

	return NewDefaultPipeline(config).Run(ctx)
}
