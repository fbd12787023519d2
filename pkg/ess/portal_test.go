package ess

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/senecgrab/senecgrab/pkg/common"
	"github.com/senecgrab/senecgrab/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAuthPath     = "/endkunde/oauth2/authorization/endkunde-portal"
	testLoginPath    = "/realms/senec/protocol/openid-connect/auth"
	testActionPath   = "/realms/senec/login-actions/authenticate"
	testAPIPath      = "/endkunde/api/status"
	testOverviewPath = testAPIPath + "/getstatusoverview.php"
	testStatusPath   = testAPIPath + "/getstatus.php"
	testInstallation = "123456"
	testUsername     = "user@example.com"
	testPassword     = "secret"
	testCookieValue  = "valid-session"
)

// loginPage is what keycloak serves, trimmed down. The action is relative and
// has an escaped ampersand to make sure both are handled.
const loginPage = `<!DOCTYPE html>
<html><head><title>Sign in to SENEC</title></head>
<body>
<div id="kc-form">
  <form id="kc-form-login" onsubmit="login.disabled = true; return true;" action="/realms/senec/login-actions/authenticate?session_code=abc&amp;tab_id=xyz" method="post">
    <input tabindex="1" id="username" name="username" type="text" autofocus autocomplete="off" />
    <input tabindex="2" id="password" name="password" type="password" autocomplete="off" />
    <input tabindex="4" name="login" id="kc-login" type="submit" value="Anmelden"/>
  </form>
</div>
</body></html>`

// fakePortal imitates the SENEC portal. All fields can be changed between
// requests while holding mu.
type fakePortal struct {
	t   *testing.T
	srv *httptest.Server

	mu             sync.Mutex
	authStatus     int
	loginPageBody  string
	overviewStatus int
	overview       map[string]interface{}
	totals         map[types.MetricKey]float64
	// failTotalAt is the 1-based index of the lifetime total request, counted
	// across the whole test, that returns failStatus
	failTotalAt int
	failStatus  int

	logins        int
	overviewCalls int
	totalCalls    []types.MetricKey
}

func newFakePortal(t *testing.T) *fakePortal {
	p := &fakePortal{
		t:              t,
		authStatus:     http.StatusOK,
		loginPageBody:  loginPage,
		overviewStatus: http.StatusOK,
		overview:       fullOverview(),
		totals:         fullTotals(),
		failStatus:     http.StatusInternalServerError,
	}
	p.srv = httptest.NewServer(http.HandlerFunc(p.handle))
	t.Cleanup(p.srv.Close)
	return p
}

func fullOverview() map[string]interface{} {
	o := map[string]interface{}{
		// the real overview has non-metric fields as well
		"lastupdated":        1700000000,
		"steuereinheitState": "EIGENVERBRAUCH",
	}
	for i, k := range types.AllKeys() {
		o[string(k)] = map[string]interface{}{
			"now":   float64(i) + 0.5,
			"today": float64(i) * 10,
		}
	}
	return o
}

func fullTotals() map[types.MetricKey]float64 {
	t := map[types.MetricKey]float64{}
	for i, k := range types.StandardKeys {
		t[k] = float64(i+1) * 1000
	}
	return t
}

func (p *fakePortal) handle(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch r.URL.Path {
	case testAuthPath:
		if p.authStatus != http.StatusOK {
			w.WriteHeader(p.authStatus)
			return
		}
		http.Redirect(w, r, testLoginPath+"?client_id=endkunde-portal", http.StatusFound)
	case testLoginPath:
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, p.loginPageBody)
	case testActionPath:
		assert.Equal(p.t, "POST", r.Method)
		assert.Equal(p.t, "abc", r.URL.Query().Get("session_code"))
		assert.Equal(p.t, "xyz", r.URL.Query().Get("tab_id"), "escaped ampersand should be decoded")
		assert.NoError(p.t, r.ParseForm())
		p.logins++
		if r.PostForm.Get("username") != testUsername || r.PostForm.Get("password") != testPassword {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "SESSION", Value: testCookieValue, Path: "/"})
		w.WriteHeader(http.StatusOK)
	case testOverviewPath:
		p.overviewCalls++
		if !p.loggedIn(r) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		assert.Equal(p.t, testInstallation, r.URL.Query().Get("anlageNummer"))
		if p.overviewStatus != http.StatusOK {
			w.WriteHeader(p.overviewStatus)
			return
		}
		json.NewEncoder(w).Encode(p.overview)
	case testStatusPath:
		key := types.MetricKey(r.URL.Query().Get("type"))
		p.totalCalls = append(p.totalCalls, key)
		if !p.loggedIn(r) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		assert.Equal(p.t, "all", r.URL.Query().Get("period"))
		assert.Equal(p.t, testInstallation, r.URL.Query().Get("anlageNummer"))
		if p.failTotalAt > 0 && len(p.totalCalls) == p.failTotalAt {
			w.WriteHeader(p.failStatus)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"fullkwh": p.totals[key],
			"unit":    "kWh",
		})
	default:
		http.Error(w, "not found: "+r.URL.Path, http.StatusNotFound)
	}
}

func (p *fakePortal) loggedIn(r *http.Request) bool {
	c, err := r.Cookie("SESSION")
	return err == nil && c.Value == testCookieValue
}

func (p *fakePortal) set(fn func(p *fakePortal)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}

func (p *fakePortal) stats() (logins, overviewCalls int, totalCalls []types.MetricKey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.logins, p.overviewCalls, append([]types.MetricKey(nil), p.totalCalls...)
}

func (p *fakePortal) config() *Config {
	return &Config{
		AuthURL:        p.srv.URL + testAuthPath,
		APIURL:         p.srv.URL + testAPIPath,
		RequestTimeout: 5 * time.Second,
	}
}

func (p *fakePortal) newSession() *Session {
	client, err := common.CookieClient(5 * time.Second)
	require.NoError(p.t, err)
	return NewSession(client, p.srv.URL+testAuthPath)
}

func (p *fakePortal) newAggregator() (*Session, *Aggregator) {
	s, a, err := p.config().New(testInstallation)
	require.NoError(p.t, err)
	return s, a
}

func testCredentials() types.Credentials {
	return types.Credentials{
		Username:       testUsername,
		Password:       testPassword,
		InstallationID: testInstallation,
	}
}
