package reconcile

import (
	"github.com/evanofslack/dnsctl/internal/provider"
)

type Plan struct {
	Create []provider.Record
	Update []provider.Record
	Delete []provider.Record
}

func (p Plan) IsEmpty() bool {
	return len(p.Create) == 0 && len(p.Update) == 0 && len(p.Delete) == 0
}

type Results struct {
	Created  []provider.Record
	Updated  []provider.Record
	Deleted  []provider.Record
	Skipped  []provider.Record
	Failures []OperationResult
}

type OperationResult struct {
	Record provider.Record
	Op     string
	Error  string
}
