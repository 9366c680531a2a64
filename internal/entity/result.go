package entity

import "errors"

type FailureKind string

const (
	FailureNone            FailureKind = ""
	FailureNotFound        FailureKind = "not_found"
	FailureNotPaid         FailureKind = "not_paid"
	FailureTemplateMissing FailureKind = "template_missing"
	FailureBuildFailed     FailureKind = "build_failed"
	FailureOutputMissing   FailureKind = "output_missing"
	FailurePublishFailed   FailureKind = "publish_failed"
	FailureNotDeployed     FailureKind = "not_deployed"
	FailureBusy            FailureKind = "busy"
	FailureConflict        FailureKind = "conflict"
	FailureInternal        FailureKind = "internal"
)

// DeployResult is what callers of the pipeline receive. It never carries a Go
// error; Kind tells the failure category apart.
type DeployResult struct {
	OrderItemID   ID          `json:"order_item_id"`
	OK            bool        `json:"ok"`
	Message       string      `json:"message"`
	DeploymentURL string      `json:"deployment_url,omitempty"`
	Kind          FailureKind `json:"kind,omitempty"`

	// Output is the tail of the toolchain output of a failed build.
	Output string `json:"output,omitempty"`
}

var failureKinds = []struct {
	err  error
	kind FailureKind
}{
	{ErrNotFound, FailureNotFound},
	{ErrNotPaid, FailureNotPaid},
	{ErrTemplateMissing, FailureTemplateMissing},
	{ErrBuildFailed, FailureBuildFailed},
	{ErrOutputMissing, FailureOutputMissing},
	{ErrPublishFailed, FailurePublishFailed},
	{ErrNotDeployed, FailureNotDeployed},
	{ErrBusy, FailureBusy},
	{ErrConflict, FailureConflict},
}

// KindOf classifies err into a FailureKind.
func KindOf(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	for _, fk := range failureKinds {
		if errors.Is(err, fk.err) {
			return fk.kind
		}
	}
	return FailureInternal
}

// Retryable reports whether re-running the same call may succeed without an
// operator fixing data or templates first.
func (k FailureKind) Retryable() bool {
	switch k {
	case FailureBuildFailed, FailurePublishFailed, FailureBusy, FailureInternal:
		return true
	}
	return false
}

func Succeeded(id ID, message, url string) DeployResult {
	return DeployResult{OrderItemID: id, OK: true, Message: message, DeploymentURL: url}
}

func Failed(id ID, message string, err error) DeployResult {
	return DeployResult{OrderItemID: id, OK: false, Message: message, Kind: KindOf(err)}
}
