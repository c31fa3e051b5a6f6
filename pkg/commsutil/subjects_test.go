package commsutil

import "testing"

func TestBuildConnectedSubject(t *testing.T) {
	got := BuildConnectedSubject("drugs")
	if got != "capchat.provider.connected.drugs" {
		t.Errorf("commsutil:subjects_test - BuildConnectedSubject() = %q", got)
	}
}

func TestBuildInvokedSubject(t *testing.T) {
	tests := []struct {
		provider, capability, want string
	}{
		{"drugs", "search_drug_info", "capchat.invoked.drugs.search_drug_info"},
		{"drugs", "drugs://categories", "capchat.invoked.drugs.drugs___categories"},
		{"my.provider", "a*b", "capchat.invoked.my_provider.a_b"},
		{"", "x", "capchat.invoked._.x"},
	}
	for _, tt := range tests {
		if got := BuildInvokedSubject(tt.provider, tt.capability); got != tt.want {
			t.Errorf("commsutil:subjects_test - BuildInvokedSubject(%q, %q) = %q, want %q", tt.provider, tt.capability, got, tt.want)
		}
	}
}

func TestEncodeDecodePayload(t *testing.T) {
	data, err := EncodePayload(map[string]int{"n": 1})
	if err != nil {
		t.Fatalf("commsutil:codec_test - EncodePayload: %v", err)
	}
	var out map[string]int
	if err := DecodePayload(data, &out); err != nil {
		t.Fatalf("commsutil:codec_test - DecodePayload: %v", err)
	}
	if out["n"] != 1 {
		t.Errorf("commsutil:codec_test - decoded %v", out)
	}
	if _, err := EncodePayload(make(chan int)); err == nil {
		t.Error("commsutil:codec_test - expected error encoding a channel")
	}
}
