package dto

import "testing"

func TestCredentials_Rotate_Golden(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		current Credentials
		issued  Credentials
		want    Credentials
	}{
		{
			name:    "refresh omitted keeps old refresh",
			current: Credentials{AccessToken: "a1", RefreshToken: "r1"},
			issued:  Credentials{AccessToken: "a2"},
			want:    Credentials{AccessToken: "a2", RefreshToken: "r1"},
		},
		{
			name:    "rotated refresh replaces old",
			current: Credentials{AccessToken: "a1", RefreshToken: "r1"},
			issued:  Credentials{AccessToken: "a2", RefreshToken: "r2"},
			want:    Credentials{AccessToken: "a2", RefreshToken: "r2"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.current.Rotate(tt.issued); got != tt.want {
				t.Fatalf("got=%+v want %+v", got, tt.want)
			}
		})
	}
}

func TestCredentials_State(t *testing.T) {
	t.Parallel()

	if !(Credentials{}).IsEmpty() {
		t.Fatalf("zero credentials should be empty")
	}
	c := Credentials{AccessToken: "a"}
	if c.IsEmpty() || !c.HasAccess() || c.HasRefresh() {
		t.Fatalf("unexpected state for %+v", c)
	}

	tok := Credentials{AccessToken: "a", RefreshToken: "r"}.OAuthToken()
	if tok.Type() != "Bearer" || tok.AccessToken != "a" || tok.RefreshToken != "r" {
		t.Fatalf("unexpected oauth token %+v", tok)
	}
}
