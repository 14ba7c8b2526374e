package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/time/rate"

	"github.com/edgenode/jsruntime/edgejs/apperr"
	"github.com/edgenode/jsruntime/edgejs/msg"
	"github.com/edgenode/jsruntime/edgejs/runtime"
)

// dnsClient is the process-wide outbound resolver, the Go analog of
// original_source/src/ops/dns.rs's lazy_static DNS_RESOLVER — one client
// bound to a public recursive resolver, shared by every Runtime's
// op_dns_query calls rather than dialed per request.
var dnsClient = &dns.Client{Timeout: 5 * time.Second}

const dnsUpstream = "8.8.8.8:53"

// dnsLimiter bounds the aggregate rate of outbound upstream queries across
// every Runtime sharing dnsClient, so one busy app's resolv listener can't
// single-handedly exhaust the upstream resolver's goodwill toward the host.
var dnsLimiter = rate.NewLimiter(rate.Limit(200), 50)

// DNSQuery performs a recursive lookup of name/qtype against the upstream
// resolver and replies with the answer section translated into
// msg.DNSRecord rows. Grounded on op_dns_query; record types beyond the
// common set op_dns_query enumerates are skipped rather than rejected, so
// an answer with one unsupported RR alongside supported ones still
// resolves.
func DNSQuery(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.DNSQuery
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}

	if err := dnsLimiter.Wait(ctx); err != nil {
		return nil, apperr.New(msg.ErrCanceled, err)
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(p.Name), p.QType)
	m.RecursionDesired = true

	in, _, err := dnsClient.ExchangeContext(ctx, m, dnsUpstream)
	if err != nil {
		return nil, apperr.New(msg.ErrIO, err)
	}
	if in.Rcode != dns.RcodeSuccess {
		return nil, apperr.Newf(msg.ErrIO, "dns query failed: %s", dns.RcodeToString[in.Rcode])
	}

	records := make([]msg.DNSRecord, 0, len(in.Answer))
	for _, rr := range in.Answer {
		rec, ok := translateRR(rr)
		if ok {
			records = append(records, rec)
		}
	}

	reply, err := msg.NewReply(env, msg.KindDNSResponse, msg.DNSResponse{ID: p.ID, Records: records})
	if err != nil {
		return nil, apperr.New(msg.ErrInternal, err)
	}
	return reply, nil
}

// DNSResponse completes the pending-response row for an inbound resolv
// event JS has answered, the DNS analog of HTTPResponse.
func DNSResponse(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.DNSResponse
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}

	reply := &msg.Envelope{CmdID: env.CmdID, Sync: env.Sync, Kind: msg.KindDNSResponse, Payload: env.Payload}
	if !rt.DNSPending().Complete(p.ID, reply) {
		return nil, apperr.Newf(msg.ErrNotFound, "no pending dns response for id %d", p.ID)
	}
	return nil, nil
}

func translateRR(rr dns.RR) (msg.DNSRecord, bool) {
	h := rr.Header()
	base := msg.DNSRecord{Name: h.Name, Class: h.Class, TTL: h.Ttl}

	switch v := rr.(type) {
	case *dns.A:
		base.Type, base.Data = "A", v.A.String()
	case *dns.AAAA:
		base.Type, base.Data = "AAAA", v.AAAA.String()
	case *dns.CNAME:
		base.Type, base.Data = "CNAME", v.Target
	case *dns.MX:
		base.Type, base.Data = "MX", fmt.Sprintf("%d %s", v.Preference, v.Mx)
	case *dns.NS:
		base.Type, base.Data = "NS", v.Ns
	case *dns.PTR:
		base.Type, base.Data = "PTR", v.Ptr
	case *dns.SOA:
		base.Type, base.Data = "SOA", fmt.Sprintf("%s %s %d %d %d %d %d", v.Ns, v.Mbox, v.Serial, v.Refresh, v.Retry, v.Expire, v.Minttl)
	case *dns.SRV:
		base.Type, base.Data = "SRV", fmt.Sprintf("%d %d %d %s", v.Priority, v.Weight, v.Port, v.Target)
	case *dns.TXT:
		base.Type = "TXT"
		for i, s := range v.Txt {
			if i > 0 {
				base.Data += " "
			}
			base.Data += s
		}
	default:
		return msg.DNSRecord{}, false
	}
	return base, true
}
