package errors

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("commit: %w", WithMetadata(CodeVersionConflict, "object changed", map[string]string{"ObjectID": "0x1"}))
	if !errors.Is(err, New(CodeVersionConflict, "")) {
		t.Fatal("expected wrapped error to match by code")
	}
	if errors.Is(err, New(CodeNotFound, "")) {
		t.Fatal("expected different code not to match")
	}
	if GetCode(err) != CodeVersionConflict {
		t.Fatalf("expected version conflict code, got %s", GetCode(err))
	}
	if GetCode(errors.New("plain")) != CodeUnknown {
		t.Fatal("expected unknown code for plain error")
	}
}

func TestGRPCCodeMapping(t *testing.T) {
	tests := map[Code]codes.Code{
		CodeNotFound:           codes.NotFound,
		CodeVersionConflict:    codes.Aborted,
		CodeUnauthorized:       codes.PermissionDenied,
		CodeAlreadyVoted:       codes.FailedPrecondition,
		CodeInvariantViolation: codes.FailedPrecondition,
		CodeStorageExhausted:   codes.ResourceExhausted,
		CodeInvalidArgument:    codes.InvalidArgument,
		CodeUnknown:            codes.Internal,
	}
	for code, want := range tests {
		if got := code.GRPCCode(); got != want {
			t.Fatalf("code %s: expected %s, got %s", code, want, got)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !CodeVersionConflict.Retryable() {
		t.Fatal("expected version conflict to be retryable")
	}
	if CodeAlreadyVoted.Retryable() || CodeUnauthorized.Retryable() {
		t.Fatal("expected domain rejections to be final")
	}
}

func TestHandleErrorAttachesDetails(t *testing.T) {
	err := HandleError(WithMetadata(CodeAlreadyVoted, "duplicate vote", map[string]string{
		"Voter":      "alice",
		"ProposalID": "0x01",
	}), "")

	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected status error, got %v", err)
	}
	if st.Code() != codes.FailedPrecondition {
		t.Fatalf("expected failed precondition, got %s", st.Code())
	}
	var sawInfo, sawMessage bool
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			sawInfo = d.GetReason() == string(CodeAlreadyVoted) && d.GetDomain() == Domain
		case *errdetails.LocalizedMessage:
			sawMessage = d.GetLocale() == DefaultLocale && d.GetMessage() == "alice has already voted on proposal 0x01"
		}
	}
	if !sawInfo || !sawMessage {
		t.Fatalf("expected error info and localized message, got %v", st.Details())
	}
}

func TestHandleErrorUnknown(t *testing.T) {
	st, _ := status.FromError(HandleError(errors.New("boom"), "en-US"))
	if st.Code() != codes.Internal {
		t.Fatalf("expected internal, got %s", st.Code())
	}
	if HandleError(nil, "") != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestFromGRPCStatusRoundTrip(t *testing.T) {
	wire := HandleError(WithMetadata(CodeVersionConflict, "object changed", map[string]string{"ObjectID": "0x2"}), "")
	back := FromGRPCStatus(wire)
	if !IsCode(back, CodeVersionConflict) {
		t.Fatalf("expected version conflict, got %v", back)
	}
	if GetMetadata(back)["ObjectID"] != "0x2" {
		t.Fatalf("expected metadata to survive, got %v", GetMetadata(back))
	}

	plain := FromGRPCStatus(status.Error(codes.Unavailable, "down"))
	if !IsCode(plain, CodeUnknown) {
		t.Fatalf("expected unknown code for plain status, got %v", plain)
	}
}
