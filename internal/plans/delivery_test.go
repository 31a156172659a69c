package plans

import (
	"testing"
	"time"
)

func TestDeliveryChannel(t *testing.T) {
	cases := []struct {
		code string
		want Channel
	}{
		{"PRO", ChannelDownload},
		{"business", ChannelDownload},
		{" TEAM ", ChannelDownload},
		{"FREE", ChannelEmail},
		{"", ChannelEmail},
		{"LEGACY", ChannelEmail},
	}
	for _, tc := range cases {
		if got := DeliveryChannel(tc.code); got != tc.want {
			t.Fatalf("DeliveryChannel(%q) = %s, want %s", tc.code, got, tc.want)
		}
	}
}

func TestDeliveryChannelIsPure(t *testing.T) {
	for i := 0; i < 3; i++ {
		if DeliveryChannel("PRO") != ChannelDownload {
			t.Fatalf("expected stable result")
		}
	}
}

func TestExpiresAt(t *testing.T) {
	now := time.Date(2024, 1, 30, 10, 0, 0, 0, time.UTC)
	got := ExpiresAt("FREE", now)
	want := time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("ExpiresAt = %s, want %s", got, want)
	}
	if RetentionDays("BUSINESS") != 30 {
		t.Fatalf("unexpected business retention")
	}
}
