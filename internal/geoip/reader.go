package geoip

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/oschwald/geoip2-golang"
	"github.com/patrickmn/go-cache"
)

type countryDB interface {
	Country(ip net.IP) (*geoip2.Country, error)
	Close() error
}

type hostResolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// Country is the location of a server address.
type Country struct {
	Code string // ISO 3166-1 alpha-2, e.g. "DE"
	Name string // English name
}

// String renders "Germany (DE)", or just the code when the name is unknown.
func (c Country) String() string {
	switch {
	case c.Code == "":
		return ""
	case c.Name == "":
		return c.Code
	default:
		return c.Name + " (" + c.Code + ")"
	}
}

// Provider maps server addresses to countries. Lookups by hostname are
// cached for a few minutes.
type Provider struct {
	db       countryDB
	resolver hostResolver
	hosts    *cache.Cache
}

// Open loads the MMDB file at path.
func Open(path string) (*Provider, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}

	return newProvider(db, net.DefaultResolver), nil
}

func newProvider(db countryDB, r hostResolver) *Provider {
	return &Provider{db: db, resolver: r, hosts: cache.New(5*time.Minute, 10*time.Minute)}
}

// Close closes the underlying database reader.
func (p *Provider) Close() error {
	return p.db.Close()
}

// Lookup returns the country of host, resolving hostnames first. A zero
// Country means unknown.
func (p *Provider) Lookup(ctx context.Context, host string) Country {
	host = strings.TrimSpace(host)
	if v, ok := p.hosts.Get(host); ok {
		return v.(Country)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ip = p.resolve(ctx, host)
	}
	if ip == nil {
		return Country{}
	}

	record, err := p.db.Country(ip)
	if err != nil {
		return Country{}
	}

	c := Country{Code: record.Country.IsoCode, Name: record.Country.Names["en"]}
	p.hosts.SetDefault(host, c)

	return c
}

// resolve picks the first IPv4 address of host, falling back to the first one.
func (p *Provider) resolve(ctx context.Context, host string) net.IP {
	ips, err := p.resolver.LookupIP(ctx, "ip", host)
	if err != nil || len(ips) == 0 {
		return nil
	}

	for _, ip := range ips {
		if ip.To4() != nil {
			return ip
		}
	}

	return ips[0]
}
