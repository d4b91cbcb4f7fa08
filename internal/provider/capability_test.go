package provider

import (
	"context"
	"testing"
)

func TestProbeCapabilitiesMissingBinary(t *testing.T) {
	caps := ProbeCapabilities(context.Background(), "this-binary-does-not-exist-zeroshot")
	if caps != allTrue() {
		t.Errorf("ProbeCapabilities on missing binary = %+v, want all-true default", caps)
	}
}

func TestHelpFlagTableEntriesNonNil(t *testing.T) {
	// ProbeCapabilities shells out, so its parsing is not run here; this only
	// checks that the helpFlag table it matches against is populated and has
	// no nil pattern.
	if len(helpFlag) == 0 {
		t.Fatal("helpFlag table is empty")
	}
	for field := range helpFlag {
		if helpFlag[field] == nil {
			t.Errorf("helpFlag[%q] is nil", field)
		}
	}
}

func TestWarnCapabilityOmittedDedupes(t *testing.T) {
	warnOnceMu.Lock()
	warnedAlready = make(map[string]bool)
	warnOnceMu.Unlock()

	warnCapabilityOmitted("testprov", "model")
	warnCapabilityOmitted("testprov", "model")

	warnOnceMu.Lock()
	defer warnOnceMu.Unlock()
	if !warnedAlready["testprov-model"] {
		t.Error("expected testprov-model to be marked warned")
	}
}
