package observability

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Genoux/website/internal/platform/requestctx"
)

const cloudTraceHeader = "X-Cloud-Trace-Context"

var tracer = otel.Tracer("github.com/Genoux/website/internal/platform/observability")

// TraceMiddleware joins the Cloud Trace context sent by the load balancer,
// starts a server span and stores the trace ids on the request context.
func TraceMiddleware(projectID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if remote, ok := parseCloudTrace(r.Header.Get(cloudTraceHeader)); ok {
				ctx = trace.ContextWithRemoteSpanContext(ctx, remote.spanContext())
			}

			ctx, span := tracer.Start(ctx, r.Method+" "+pathOrRoot(r),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(requestAttributes(r)...),
			)
			defer span.End()

			sc := span.SpanContext()
			info := requestctx.TraceInfo{
				TraceID:   sc.TraceID().String(),
				SpanID:    sc.SpanID().String(),
				Sampled:   sc.IsSampled(),
				ProjectID: projectID,
			}
			ctx = requestctx.WithTrace(ctx, info)
			if sc.IsValid() {
				w.Header().Set(cloudTraceHeader, cloudTrace{traceID: sc.TraceID(), spanID: sc.SpanID(), sampled: sc.IsSampled()}.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// cloudTrace is the parsed form of "TRACE_ID/SPAN_ID;o=OPTIONS".
type cloudTrace struct {
	traceID trace.TraceID
	spanID  trace.SpanID
	sampled bool
}

func parseCloudTrace(header string) (cloudTrace, bool) {
	traceHex, rest, ok := strings.Cut(strings.TrimSpace(header), "/")
	if !ok || len(strings.TrimSpace(traceHex)) != 32 {
		return cloudTrace{}, false
	}
	traceID, err := trace.TraceIDFromHex(strings.TrimSpace(traceHex))
	if err != nil {
		return cloudTrace{}, false
	}
	spanPart, options, _ := strings.Cut(rest, ";")
	spanID, ok := parseSpanID(spanPart)
	if !ok {
		return cloudTrace{}, false
	}
	return cloudTrace{traceID: traceID, spanID: spanID, sampled: sampledOption(options)}, true
}

func (c cloudTrace) spanContext() trace.SpanContext {
	var flags trace.TraceFlags
	if c.sampled {
		flags = trace.FlagsSampled
	}
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    c.traceID,
		SpanID:     c.spanID,
		TraceFlags: flags,
		Remote:     true,
	})
}

func (c cloudTrace) String() string {
	option := "0"
	if c.sampled {
		option = "1"
	}
	return fmt.Sprintf("%s/%s;o=%s", c.traceID, c.spanID, option)
}

// parseSpanID accepts the hex form as well as the decimal form Google's
// frontends send.
func parseSpanID(value string) (trace.SpanID, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return trace.SpanID{}, false
	}
	if len(value) <= 16 {
		if _, err := hex.DecodeString(padEven(value)); err == nil {
			if id, err := trace.SpanIDFromHex(strings.Repeat("0", 16-len(value)) + value); err == nil && id.IsValid() {
				return id, true
			}
		}
	}
	num, err := strconv.ParseUint(value, 10, 64)
	if err != nil || num == 0 {
		return trace.SpanID{}, false
	}
	var id trace.SpanID
	binary.BigEndian.PutUint64(id[:], num)
	return id, true
}

func padEven(value string) string {
	if len(value)%2 == 1 {
		return "0" + value
	}
	return value
}

func sampledOption(options string) bool {
	for _, segment := range strings.Split(options, ";") {
		segment = strings.TrimSpace(segment)
		if strings.HasPrefix(segment, "o=") {
			return segment == "o=1"
		}
	}
	return false
}

func pathOrRoot(r *http.Request) string {
	if r == nil || r.URL == nil || r.URL.Path == "" {
		return "/"
	}
	return r.URL.Path
}

func requestAttributes(r *http.Request) []attribute.KeyValue {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	attrs := []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.URLScheme(scheme),
		semconv.URLPath(pathOrRoot(r)),
	}
	if r.Host != "" {
		attrs = append(attrs, semconv.ServerAddress(r.Host))
	}
	if ua := r.UserAgent(); ua != "" {
		attrs = append(attrs, semconv.UserAgentOriginal(ua))
	}
	return attrs
}
