package parser

import (
	"strings"

	"github.com/bnema/ublock-filter-engine/internal/models"
)

// parseDomains splits a domain list on sep and files each domain into the
// filter's blacklist, or its whitelist when negated with ~.  Entity domains
// such as example.* keep the trailing dot only.
func parseDomains(s string, sep byte, f *models.Filter) {
	if s == "" {
		return
	}

	var domains []string
	for _, d := range strings.Split(s, string(sep)) {
		if d = strings.TrimSpace(d); d != "" {
			domains = append(domains, d)
		}
	}
	if len(domains) == 0 {
		domains = []string{s}
	}

	for _, d := range domains {
		if strings.HasSuffix(d, ".*") {
			d = d[:len(d)-1]
		}
		d = strings.ToLower(d)

		if strings.HasPrefix(d, "~") {
			if d = d[1:]; d != "" {
				f.DomainWhitelist = append(f.DomainWhitelist, d)
			}
			continue
		}
		f.DomainBlacklist = append(f.DomainBlacklist, d)
	}
}
