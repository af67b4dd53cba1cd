// Package resolver locates the methods described by signatures in a
// collection of dex classes.
package resolver

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/dexsig/pkg/dex"
	"github.com/blacktop/dexsig/pkg/proxy"
	"github.com/blacktop/dexsig/pkg/signature"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

// DefaultCacheSize is the default number of cached method indexes.
const DefaultCacheSize = 4096

// Policy decides which match a signature keeps when several methods match it.
type Policy int

const (
	// PolicyLastMatch keeps the last match in class then method order.
	PolicyLastMatch Policy = iota
	// PolicyFirstMatch keeps the first match in class then method order.
	PolicyFirstMatch
)

func (p Policy) String() string {
	switch p {
	case PolicyLastMatch:
		return "last-match"
	case PolicyFirstMatch:
		return "first-match"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses "last-match" or "first-match" (the "-match" suffix is optional).
func ParsePolicy(s string) (Policy, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "-match") {
	case "", "last":
		return PolicyLastMatch, nil
	case "first":
		return PolicyFirstMatch, nil
	default:
		return 0, fmt.Errorf("unknown match policy %q (expected last-match or first-match)", s)
	}
}

func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Policy) UnmarshalText(text []byte) error {
	v, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Options configures a Resolver.
type Options struct {
	// Workers is the number of classes scanned concurrently; values below 1
	// use GOMAXPROCS.
	Workers int
	// Policy picks between several matches of one signature.
	Policy Policy
	// CacheSize bounds the method index cache; values below 1 use DefaultCacheSize.
	CacheSize int
}

// Result is a resolved signature.
type Result struct {
	Signature *signature.MethodSignature
	// Proxy is shared with every other result in the same class.
	Proxy  *proxy.ClassProxy
	Scan   *PatternScanResult
	Method dex.Method
}

func (r *Result) String() string {
	return fmt.Sprintf("%s -> %s [%d:%d]", r.Signature.Name, dex.MethodReference(r.Method), r.Scan.StartIndex, r.Scan.EndIndex)
}

// MutableMethod returns the copy of the matched method in the proxy's
// mutable class, creating the mutable class if needed.
func (r *Result) MutableMethod() *proxy.MutableMethod {
	return r.Proxy.Mutable().Method(dex.MethodReference(r.Method))
}

// Results maps each resolved signature to its result.
type Results map[*signature.MethodSignature]*Result

// Get returns the result for sig.
func (r Results) Get(sig *signature.MethodSignature) (*Result, bool) {
	res, ok := r[sig]
	return res, ok
}

// Unresolved returns the signatures of sigs without a result, in order.
func (r Results) Unresolved(sigs []*signature.MethodSignature) []*signature.MethodSignature {
	var out []*signature.MethodSignature
	for _, sig := range sigs {
		if _, ok := r[sig]; !ok {
			out = append(out, sig)
		}
	}
	return out
}

// Sorted returns the results in the order of sigs.
func (r Results) Sorted(sigs []*signature.MethodSignature) []*Result {
	var out []*Result
	for _, sig := range sigs {
		if res, ok := r[sig]; ok {
			out = append(out, res)
		}
	}
	return out
}

// Resolver matches signatures against classes and binds matches to class
// proxies from its registry.
//
// Method indexes are cached by method identity, so the same Resolver can be
// reused across class collections.
type Resolver struct {
	registry *proxy.Registry
	opts     Options
	cache    *lru.Cache[dex.Method, *methodIndex]
}

// New creates a resolver. A nil registry gets a fresh one.
func New(registry *proxy.Registry, opts *Options) (*Resolver, error) {
	if registry == nil {
		registry = proxy.NewRegistry()
	}
	r := &Resolver{registry: registry}
	if opts != nil {
		r.opts = *opts
	}
	if r.opts.Workers < 1 {
		r.opts.Workers = runtime.GOMAXPROCS(0)
	}
	if r.opts.CacheSize < 1 {
		r.opts.CacheSize = DefaultCacheSize
	}
	cache, err := lru.New[dex.Method, *methodIndex](r.opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create method index cache: %w", err)
	}
	r.cache = cache
	return r, nil
}

// Registry returns the proxy registry the resolver binds matches to.
func (r *Resolver) Registry() *proxy.Registry {
	return r.registry
}

// Options returns the effective options.
func (r *Resolver) Options() Options {
	return r.opts
}

type hit struct {
	sig    int
	method int
	scan   *PatternScanResult
}

// Resolve matches every signature against every method of classes.
//
// The scan does not stop at the first match. With PolicyLastMatch a
// signature ends up with the last matching method in class then method
// order, and the registry is asked for a proxy of every class that matched.
// With PolicyFirstMatch only the first match is kept and proxied.
func (r *Resolver) Resolve(sigs []*signature.MethodSignature, classes []dex.ClassDef) Results {
	hits := make([][]hit, len(classes))
	scan := func(ci int) {
		for mi, m := range classes[ci].Methods() {
			var memo *methodIndex
			idx := func() *methodIndex {
				if memo == nil {
					memo = r.index(m)
				}
				return memo
			}
			for si, sig := range sigs {
				res, ok := compareIndexed(sig, m, idx)
				if !ok {
					continue
				}
				hits[ci] = append(hits[ci], hit{sig: si, method: mi, scan: res})
			}
		}
	}

	if r.opts.Workers == 1 || len(classes) < 2 {
		for ci := range classes {
			scan(ci)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(r.opts.Workers)
		for ci := range classes {
			ci := ci
			g.Go(func() error {
				scan(ci)
				return nil
			})
		}
		_ = g.Wait()
	}

	// bucket by signature in class then method order, exactly as a
	// sequential pass would bind them
	type bound struct {
		class int
		hit
	}
	bySig := make([][]bound, len(sigs))
	for ci := range hits {
		for _, h := range hits[ci] {
			bySig[h.sig] = append(bySig[h.sig], bound{class: ci, hit: h})
		}
	}

	results := make(Results)
	for si, sig := range sigs {
		log.WithField("signature", sig.Name).Debug("Resolving")
		for _, b := range bySig[si] {
			class := classes[b.class]
			m := class.Methods()[b.method]
			log.WithFields(log.Fields{
				"signature": sig.Name,
				"method":    dex.MethodReference(m),
				"start":     b.scan.StartIndex,
				"end":       b.scan.EndIndex,
				"warnings":  len(b.scan.Warnings),
			}).Debug("Matched")
			results[sig] = &Result{
				Signature: sig,
				Proxy:     r.registry.Proxy(class),
				Scan:      b.scan,
				Method:    m,
			}
			if r.opts.Policy == PolicyFirstMatch {
				break
			}
		}
	}
	return results
}

// index returns the cached index of m. Mutable methods and methods backed
// by values that cannot be map keys are indexed every time.
func (r *Resolver) index(m dex.Method) *methodIndex {
	if _, ok := m.(*proxy.MutableMethod); ok || !reflect.TypeOf(m).Comparable() {
		return indexMethod(m)
	}
	if v, ok := r.cache.Get(m); ok {
		return v
	}
	v := indexMethod(m)
	r.cache.Add(m, v)
	return v
}

// ResolveFromProxy scans the methods of one already proxied class and
// returns the first match. It binds nothing and leaves the registry alone.
func (r *Resolver) ResolveFromProxy(p *proxy.ClassProxy, sig *signature.MethodSignature) (*Result, bool) {
	return resolveFromProxy(p, sig, r.index)
}

// ResolveFromProxy is Resolver.ResolveFromProxy without the index cache.
func ResolveFromProxy(p *proxy.ClassProxy, sig *signature.MethodSignature) (*Result, bool) {
	return resolveFromProxy(p, sig, indexMethod)
}

func resolveFromProxy(p *proxy.ClassProxy, sig *signature.MethodSignature, index func(dex.Method) *methodIndex) (*Result, bool) {
	for _, m := range p.Immutable().Methods() {
		res, ok := compareIndexed(sig, m, func() *methodIndex { return index(m) })
		if !ok {
			continue
		}
		log.WithFields(log.Fields{
			"signature": sig.Name,
			"method":    dex.MethodReference(m),
		}).Debug("Matched")
		return &Result{
			Signature: sig,
			Proxy:     p,
			Scan:      res,
			Method:    m,
		}, true
	}
	return nil, false
}
