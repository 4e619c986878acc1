package oauth2

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/janus/internal/cache"
	tokens "github.com/dropDatabas3/janus/internal/security/token"
	"github.com/dropDatabas3/janus/internal/store/core"
)

// Client ID Metadata Documents: el client_id es una URL https que apunta a
// un JSON con los metadatos del client. El fetch remoto es terreno SSRF,
// así que todo el camino está acotado: tamaño, timeout, redirects, IPs.
const (
	cimdMaxResponseSize = 5 * 1024
	cimdFetchTimeout    = 5 * time.Second
	cimdCacheTTL        = 1 * time.Hour
)

var (
	errPrivateIP       = errors.New("resolved IP is a private/loopback address")
	errTooManyRedirect = errors.New("too many redirects")
	errNonHTTPS        = errors.New("redirect to non-HTTPS URL")
)

// CIMDMetadata es el documento remoto. Los campos de secret están
// prohibidos: un CIMD client es siempre público.
type CIMDMetadata struct {
	ClientID      string   `json:"client_id"`
	ClientName    string   `json:"client_name"`
	RedirectURIs  []string `json:"redirect_uris"`
	Scope         string   `json:"scope"`
	GrantTypes    []string `json:"grant_types"`
	ResponseTypes []string `json:"response_types"`

	ClientSecret          *string `json:"client_secret"`
	ClientSecretExpiresAt *int    `json:"client_secret_expires_at"`
}

// IsCIMDClientID decide si un client_id debe resolverse como URL CIMD.
// No valida a fondo: eso es trabajo de validateCIMDURL.
func IsCIMDClientID(clientID string) bool {
	u, err := url.Parse(clientID)
	if err != nil {
		return false
	}
	scheme := u.Scheme == "https" || u.Scheme == "http"
	return scheme && u.Host != "" && u.Path != "" && u.Path != "/"
}

func validateCIMDURL(ctx context.Context, clientID string, allowInsecure bool) (*url.URL, *Error) {
	u, err := url.Parse(clientID)
	if err != nil {
		return nil, &Error{Err: "invalid_client", Description: "Invalid client_id URL"}
	}
	if u.Scheme != "https" && !(allowInsecure && u.Scheme == "http") {
		return nil, &Error{Err: "invalid_client", Description: "Client ID metadata document URL must use HTTPS"}
	}
	if u.Path == "" || u.Path == "/" {
		return nil, &Error{Err: "invalid_client", Description: "Client ID metadata document URL must have a path"}
	}
	if u.Fragment != "" {
		return nil, &Error{Err: "invalid_client", Description: "Client ID metadata document URL must not have a fragment"}
	}
	if u.User != nil {
		return nil, &Error{Err: "invalid_client", Description: "Client ID metadata document URL must not have credentials"}
	}
	if hasDotSegments(u.Path) {
		return nil, &Error{Err: "invalid_client", Description: "Client ID metadata document URL must not contain dot segments"}
	}
	if !allowInsecure && isPrivateOrLoopback(ctx, u.Hostname()) {
		return nil, &Error{Err: "invalid_client", Description: "Client ID metadata document URL must not point to a private address"}
	}
	return u, nil
}

func hasDotSegments(path string) bool {
	return strings.Contains(path, "/./") ||
		strings.Contains(path, "/../") ||
		strings.HasSuffix(path, "/.") ||
		strings.HasSuffix(path, "/..")
}

func isPrivateOrLoopback(ctx context.Context, host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return isBlockedIP(ip)
	}
	// Resolver hostnames para que "localhost" y similares caigan igual.
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return false
	}
	for _, r := range ips {
		if isBlockedIP(r.IP) {
			return true
		}
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}

// resolveCIMDClient resuelve un client_id CIMD: valida la URL, consulta el
// cache (TTL 1h), y si hace falta fetchea el documento, lo valida y
// upsertea el client en el registry.
func (p *Provider) resolveCIMDClient(ctx context.Context, clientID string) (*core.Client, *Error) {
	u, oerr := validateCIMDURL(ctx, clientID, p.cfg.CIMDAllowInsecure)
	if oerr != nil {
		return nil, oerr
	}

	cacheKey := "cimd:" + tokens.SHA256Base64URL(clientID)
	if _, err := p.cache.Get(ctx, cacheKey); err == nil {
		if cl, err := p.store.GetClientByClientID(ctx, clientID); err == nil && cl.Source == core.ClientCIMD {
			return cl, nil
		}
	} else if err != cache.ErrNotFound {
		p.log.Warn("cimd cache lookup failed", zap.Error(err))
	}

	md, oerr := p.fetchCIMDMetadata(ctx, u.String())
	if oerr != nil {
		return nil, oerr
	}

	scopes := []string{"openid"}
	if md.Scope != "" {
		scopes = strings.Fields(md.Scope)
		for _, s := range scopes {
			if !p.scopeSupported(s) {
				return nil, &Error{
					Err:         "invalid_scope",
					Description: fmt.Sprintf("Scope %q not supported", s),
				}
			}
		}
	}

	cl := &core.Client{
		ClientID:     clientID,
		Name:         md.ClientName,
		Type:         core.ClientPublic,
		Source:       core.ClientCIMD,
		RedirectURIs: md.RedirectURIs,
		Scopes:       scopes,
	}
	if err := p.store.CreateClient(ctx, cl); err != nil {
		p.log.Error("cimd client upsert failed", zap.Error(err))
		return nil, serverError()
	}
	if err := p.cache.Set(ctx, cacheKey, "1", cimdCacheTTL); err != nil {
		p.log.Warn("cimd cache set failed", zap.Error(err))
	}
	return cl, nil
}

func (p *Provider) fetchCIMDMetadata(ctx context.Context, clientIDURL string) (*CIMDMetadata, *Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, clientIDURL, nil)
	if err != nil {
		p.log.Error("cimd request build failed", zap.Error(err))
		return nil, serverError()
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.cimdHTTP.Do(req)
	if err != nil {
		p.log.Warn("cimd fetch failed", zap.String("url", clientIDURL), zap.Error(err))
		return nil, &Error{Err: "invalid_client", Description: "Failed to fetch client metadata document"}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.log.Warn("cimd fetch non-200", zap.String("url", clientIDURL), zap.Int("status", resp.StatusCode))
		return nil, &Error{Err: "invalid_client", Description: "Client metadata document returned non-200 status"}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, cimdMaxResponseSize+1))
	if err != nil {
		p.log.Warn("cimd body read failed", zap.Error(err))
		return nil, &Error{Err: "invalid_client", Description: "Failed to read client metadata document"}
	}
	if len(body) > cimdMaxResponseSize {
		return nil, &Error{Err: "invalid_client", Description: "Client metadata document exceeds maximum size"}
	}

	return p.parseCIMDMetadata(body, clientIDURL)
}

func (p *Provider) parseCIMDMetadata(body []byte, clientIDURL string) (*CIMDMetadata, *Error) {
	var md CIMDMetadata
	if err := json.Unmarshal(body, &md); err != nil {
		p.log.Warn("cimd metadata parse failed", zap.Error(err))
		return nil, &Error{Err: "invalid_client", Description: "Invalid client metadata document JSON"}
	}
	if md.ClientID != clientIDURL {
		p.log.Warn("cimd client_id mismatch",
			zap.String("expected", clientIDURL), zap.String("actual", md.ClientID))
		return nil, &Error{Err: "invalid_client", Description: "Client ID in metadata does not match the URL"}
	}
	if md.ClientSecret != nil || md.ClientSecretExpiresAt != nil {
		return nil, &Error{Err: "invalid_client", Description: "Client metadata document must not contain client_secret fields"}
	}
	if len(md.RedirectURIs) == 0 {
		return nil, &Error{Err: "invalid_client", Description: "Client metadata document must contain at least one redirect_uri"}
	}
	if oerr := validateRedirectURIOrigins(clientIDURL, md.RedirectURIs); oerr != nil {
		p.log.Warn("cimd redirect_uri origin mismatch", zap.String("client_id", clientIDURL))
		return nil, oerr
	}
	return &md, nil
}

// validateRedirectURIOrigins exige que cada redirect_uri viva en el mismo
// origin que el client_id.
func validateRedirectURIOrigins(clientIDURL string, redirectURIs []string) *Error {
	cu, err := url.Parse(clientIDURL)
	if err != nil {
		return &Error{Err: "invalid_client", Description: "Invalid client_id URL"}
	}
	origin := cu.Scheme + "://" + cu.Host
	for _, r := range redirectURIs {
		ru, err := url.Parse(r)
		if err != nil || ru.Scheme+"://"+ru.Host != origin {
			return &Error{Err: "invalid_client", Description: "redirect_uri must be on the same origin as the client_id"}
		}
	}
	return nil
}

// newCIMDHTTPClient arma el http.Client para fetchear documents. En modo
// seguro el dialer re-resuelve DNS y corta si alguna IP es privada
// (anti DNS-rebinding), limita redirects a 3 y los fuerza a https.
func newCIMDHTTPClient(allowInsecure bool) *http.Client {
	if allowInsecure {
		return &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion:         tls.VersionTLS12,
					InsecureSkipVerify: true,
				},
			},
			Timeout: cimdFetchTimeout,
		}
	}

	dialer := &net.Dialer{Timeout: cimdFetchTimeout}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, fmt.Errorf("invalid address: %w", err)
			}
			ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
			if err != nil {
				return nil, fmt.Errorf("DNS lookup failed: %w", err)
			}
			for _, ip := range ips {
				if isBlockedIP(ip.IP) {
					return nil, fmt.Errorf("%w: %s", errPrivateIP, ip.IP.String())
				}
			}
			return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].IP.String(), port))
		},
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cimdFetchTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			const maxRedirects = 3
			if len(via) >= maxRedirects {
				return fmt.Errorf("%w (max %d)", errTooManyRedirect, maxRedirects)
			}
			if req.URL.Scheme != "https" {
				return fmt.Errorf("%w: %s", errNonHTTPS, req.URL.String())
			}
			return nil
		},
	}
}
