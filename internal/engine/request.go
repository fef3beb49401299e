package engine

import (
	"strings"

	"github.com/bnema/ublock-filter-engine/internal/models"
	"golang.org/x/net/publicsuffix"
)

// request is a models.Request prepared for matching.
type request struct {
	url   string
	lower string

	// hostStart and hostEnd delimit the hostname, in url for rawStart and
	// rawEnd and in lower for the others.
	rawStart  int
	rawEnd    int
	hostStart int
	hostEnd   int

	// hostname is the lower-cased host of the request.
	hostname string

	// domainHost is the host that $domain options and cosmetic domain lists
	// are checked against.  It's the page host if there is one, and the
	// request host otherwise.
	domainHost string

	// entityHost is domainHost without its public suffix, for entity
	// domains like example.*.
	entityHost string

	typ        models.ElementType
	thirdParty bool
}

// newRequest prepares req for matching.
func newRequest(req *models.Request) (r *request) {
	r = &request{
		url:   req.URL,
		lower: strings.ToLower(req.URL),
		typ:   req.Type,
	}
	r.rawStart, r.rawEnd = hostBounds(r.url)
	r.hostStart, r.hostEnd = hostBounds(r.lower)
	r.hostname = r.lower[r.hostStart:r.hostEnd]

	r.domainHost = r.hostname
	if pageHost := hostname(req.PageURL); pageHost != "" {
		r.domainHost = pageHost
		r.thirdParty = registrableDomain(pageHost) != registrableDomain(r.hostname)
	}
	r.entityHost = stripPublicSuffix(r.domainHost)

	return r
}

// subject returns the text f is matched against along with the bounds of
// the hostname in it.
func (r *request) subject(f *models.Filter) (s string, start, end int) {
	if f.MatchCase {
		return r.url, r.rawStart, r.rawEnd
	}

	return r.lower, r.hostStart, r.hostEnd
}

// admits reports whether the type, party and domain options of f allow it
// to apply to r.
func (r *request) admits(f *models.Filter) bool {
	return f.AdmitsType(r.typ, r.thirdParty) && admitsDomains(f, r.domainHost, r.entityHost)
}

// hostBounds returns the bounds of the hostname in u, without the userinfo
// and the port.
func hostBounds(u string) (start, end int) {
	end = len(u)
	if i := strings.Index(u, "://"); i >= 0 && !strings.ContainsAny(u[:i], "/?#") {
		start = i + len("://")
	}
	if i := strings.IndexAny(u[start:], "/?#"); i >= 0 {
		end = start + i
	}
	if i := strings.LastIndexByte(u[start:end], '@'); i >= 0 {
		start += i + 1
	}
	if i := strings.LastIndexByte(u[start:end], ':'); i >= 0 && !strings.Contains(u[start+i:end], "]") {
		end = start + i
	}

	return start, end
}

// hostname returns the lower-cased hostname of u.
func hostname(u string) (host string) {
	if u == "" {
		return ""
	}

	u = strings.ToLower(u)
	start, end := hostBounds(u)

	return u[start:end]
}

// registrableDomain returns the eTLD+1 of host, or host itself if it has
// none, as is the case for IP addresses and single-label hosts.
func registrableDomain(host string) (domain string) {
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}

	return domain
}

// stripPublicSuffix returns host without its public suffix.
func stripPublicSuffix(host string) (stripped string) {
	if host == "" {
		return ""
	}

	suffix, _ := publicsuffix.PublicSuffix(host)
	i := len(host) - len(suffix) - 1
	if i <= 0 || host[i] != '.' {
		return host
	}

	return host[:i]
}

// matchesDomain reports whether host is domain or one of its subdomains.
func matchesDomain(host, domain string) bool {
	if domain == "" || !strings.HasSuffix(host, domain) {
		return false
	}

	n := len(host) - len(domain)

	return n == 0 || host[n-1] == '.'
}

// domainListed reports whether host falls under the list entry d.  Entity
// entries end with a dot and are compared with entity, which is host without
// its public suffix.
func domainListed(d, host, entity string) bool {
	if name, ok := strings.CutSuffix(d, "."); ok {
		return matchesDomain(entity, name)
	}

	return matchesDomain(host, d)
}

// admitsDomains reports whether the domain lists of f allow it to apply on
// host.  The whitelist wins over the blacklist.
func admitsDomains(f *models.Filter, host, entity string) bool {
	for _, d := range f.DomainWhitelist {
		if domainListed(d, host, entity) {
			return false
		}
	}

	if len(f.DomainBlacklist) == 0 {
		return true
	}

	for _, d := range f.DomainBlacklist {
		if domainListed(d, host, entity) {
			return true
		}
	}

	return false
}

// radixKey returns the reversed host followed by a dot.  A walk along the
// key of a host visits the keys of all its parent domains, and only them.
func radixKey(host string) (key string) {
	n := len(host)
	b := make([]byte, n+1)
	for i := 0; i < n; i++ {
		b[n-1-i] = host[i]
	}
	b[n] = '.'

	return string(b)
}
