package presenter

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/authflow/internal/flow"
)

func TestLoopbackPresenterRedirectURI(t *testing.T) {
	p := NewLoopbackPresenter(LoopbackConfig{})
	defer p.Close()

	uri, err := p.RedirectURI(flow.RedirectOptions{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "http://127.0.0.1:"), "uri = %q", uri)
	assert.True(t, strings.HasSuffix(uri, "/callback"), "uri = %q", uri)

	// The listener binds once; repeated calls return the same URI.
	again, err := p.RedirectURI(flow.RedirectOptions{})
	require.NoError(t, err)
	assert.Equal(t, uri, again)
}

func TestLoopbackPresenterCapturesRedirect(t *testing.T) {
	p := NewLoopbackPresenter(LoopbackConfig{
		OpenBrowser: func(authURL string) error {
			return nil
		},
	})

	uri, err := p.RedirectURI(flow.RedirectOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan flow.Presentation, 1)
	go func() {
		pres, err := p.Present(ctx, "https://auth.example.com/authorize", flow.WindowHints{})
		require.NoError(t, err)
		done <- pres
	}()

	// Simulate the provider redirecting the browser back.
	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get(uri + "?code=XYZ&state=abc")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "Sign-in complete")

	pres := <-done
	assert.Equal(t, flow.PresentRedirect, pres.Outcome)
	assert.Contains(t, pres.RedirectURL, "code=XYZ")
	assert.Contains(t, pres.RedirectURL, "state=abc")
}

func TestLoopbackPresenterContextCancel(t *testing.T) {
	opened := make(chan struct{}, 1)
	p := NewLoopbackPresenter(LoopbackConfig{
		OpenBrowser: func(authURL string) error {
			opened <- struct{}{}
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan flow.Presentation, 1)
	go func() {
		pres, err := p.Present(ctx, "https://auth.example.com/authorize", flow.WindowHints{})
		require.NoError(t, err)
		done <- pres
	}()

	<-opened
	cancel()

	select {
	case pres := <-done:
		assert.Equal(t, flow.PresentCancelled, pres.Outcome)
	case <-time.After(5 * time.Second):
		t.Fatal("Present did not return after context cancellation")
	}
}

func TestLoopbackPresenterBrowserFailure(t *testing.T) {
	p := NewLoopbackPresenter(LoopbackConfig{
		OpenBrowser: func(authURL string) error {
			return io.ErrUnexpectedEOF
		},
	})

	_, err := p.Present(context.Background(), "https://auth.example.com/authorize", flow.WindowHints{})
	assert.Error(t, err)
}

func TestSchemePolicyRedirectURI(t *testing.T) {
	tests := []struct {
		name    string
		policy  SchemePolicy
		opts    flow.RedirectOptions
		want    string
		wantErr bool
	}{
		{
			name:   "override wins",
			policy: SchemePolicy{DefaultScheme: "myapp", ProxyURL: "https://proxy.example.com/cb"},
			opts: flow.RedirectOptions{
				NativeScheme:        "other",
				UseIndirectionProxy: true,
				Overrides:           map[string]string{OverrideRedirectURI: "https://override.example.com/cb"},
			},
			want: "https://override.example.com/cb",
		},
		{
			name:   "indirection proxy",
			policy: SchemePolicy{ProxyURL: "https://proxy.example.com/cb"},
			opts:   flow.RedirectOptions{UseIndirectionProxy: true},
			want:   "https://proxy.example.com/cb",
		},
		{
			name:    "proxy requested but unconfigured",
			policy:  SchemePolicy{},
			opts:    flow.RedirectOptions{UseIndirectionProxy: true},
			wantErr: true,
		},
		{
			name:   "native scheme",
			policy: SchemePolicy{DefaultScheme: "fallback"},
			opts:   flow.RedirectOptions{NativeScheme: "myapp"},
			want:   "myapp://oauth/callback",
		},
		{
			name:   "default scheme",
			policy: SchemePolicy{DefaultScheme: "fallback", CallbackHost: "auth"},
			opts:   flow.RedirectOptions{},
			want:   "fallback://auth/callback",
		},
		{
			name:    "no scheme at all",
			policy:  SchemePolicy{},
			opts:    flow.RedirectOptions{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.policy.RedirectURI(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
