package common

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{ConfigurationErr("no instances"), KindConfiguration},
		{ResolutionErr("no image for %s", "DB1"), KindResolution},
		{CollisionErr("exists"), KindCollision},
		{ProvisioningErr("mount", "boom"), KindProvisioning},
		{AttachmentErr("boom"), KindAttachment},
		{PersistenceErr("boom"), KindPersistence},
		{errors.New("plain"), ""},
		{nil, ""},
	}
	for _, c := range cases {
		if got := KindOf(c.err); got != c.want {
			t.Errorf("KindOf(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestKindOfSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("pairing SQL1/DB1: %w", CollisionErr("database DB1 already exists"))
	if KindOf(err) != KindCollision {
		t.Errorf("KindOf through a wrap = %q", KindOf(err))
	}
}

func TestPipelineErrorUnwrap(t *testing.T) {
	cause := errors.New("ssh: handshake failed")
	err := ProvisioningErr("mount", "mount disk: %w", cause)
	if !errors.Is(err, cause) {
		t.Error("cause lost through the pipeline error")
	}
}

func TestPipelineErrorMessageCarriesStep(t *testing.T) {
	err := ProvisioningErr("initialize", "disk 3 stuck")
	if !strings.Contains(err.Error(), "initialize") || !strings.Contains(err.Error(), "provisioning") {
		t.Errorf("message = %q", err.Error())
	}
	if err2 := ResolutionErr("no image"); strings.Contains(err2.Error(), " at ") {
		t.Errorf("step-less error mentions a step: %q", err2.Error())
	}
}
