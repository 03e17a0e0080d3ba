// Package grpcweb lets browsers call the gRPC service over HTTP/1.1 using
// gRPC-Web framing with JSON messages.
package grpcweb

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"medivault-api/internal/grpcapi"
)

const (
	contentType = "application/grpc-web+json"
	maxFrame    = 1 << 20

	flagData    byte = 0x00
	flagTrailer byte = 0x80
)

// Bridge translates gRPC-Web requests into native gRPC calls.
type Bridge struct {
	conn    *grpc.ClientConn
	origins map[string]bool
	log     zerolog.Logger
}

// New connects to the gRPC server at target. Extra options are appended after
// the defaults.
func New(target string, origins []string, log zerolog.Logger, opts ...grpc.DialOption) (*Bridge, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpcweb dial: %w", err)
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Bridge{conn: conn, origins: allowed, log: log}, nil
}

func (b *Bridge) Close() error { return b.conn.Close() }

// Prefix is the URL path prefix the bridge serves.
func Prefix() string { return "/" + grpcapi.ServiceName + "/" }

func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if origin := r.Header.Get("Origin"); origin != "" && (b.origins[origin] || b.origins["*"]) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Grpc-Web, X-User-Agent")
		h.Set("Access-Control-Expose-Headers", "Grpc-Status, Grpc-Message")
		h.Set("Access-Control-Max-Age", "86400")
		h.Add("Vary", "Origin")
	}

	switch {
	case r.Method == http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case r.Method != http.MethodPost:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	case !strings.HasPrefix(r.Header.Get("Content-Type"), contentType):
		http.Error(w, "expected "+contentType, http.StatusUnsupportedMediaType)
		return
	}

	b.forward(w, r)
}

func (b *Bridge) forward(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxFrame+5))
	if err != nil {
		writeTrailer(w, codes.Internal, "read body failed")
		return
	}
	payload, err := readFrame(body)
	if err != nil {
		writeTrailer(w, codes.InvalidArgument, err.Error())
		return
	}

	md := metadata.MD{}
	if vals := r.Header.Values("Authorization"); len(vals) > 0 {
		md.Set("authorization", vals...)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		md.Set("x-forwarded-for", host)
	}
	ctx := metadata.NewOutgoingContext(r.Context(), md)

	resp := &rawMsg{}
	if err := b.conn.Invoke(ctx, r.URL.Path, &rawMsg{data: payload}, resp, grpc.ForceCodec(rawCodec{})); err != nil {
		st := status.Convert(err)
		b.log.Debug().Str("method", r.URL.Path).Str("code", st.Code().String()).Msg("grpc-web call failed")
		writeTrailer(w, st.Code(), st.Message())
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(frame(flagData, resp.data))
	_, _ = w.Write(frame(flagTrailer, []byte("grpc-status:0\r\n")))
}

// readFrame extracts the single message of a unary request.
func readFrame(body []byte) ([]byte, error) {
	if len(body) < 5 {
		return nil, fmt.Errorf("body too short")
	}
	if body[0] != flagData {
		return nil, fmt.Errorf("unexpected frame flag %#x", body[0])
	}
	n := binary.BigEndian.Uint32(body[1:5])
	if n > maxFrame || int(n)+5 > len(body) {
		return nil, fmt.Errorf("incomplete frame")
	}
	return body[5 : 5+n], nil
}

func frame(flag byte, data []byte) []byte {
	f := make([]byte, 5+len(data))
	f[0] = flag
	binary.BigEndian.PutUint32(f[1:5], uint32(len(data)))
	copy(f[5:], data)
	return f
}

func writeTrailer(w http.ResponseWriter, code codes.Code, msg string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	trailer := fmt.Sprintf("grpc-status:%d\r\ngrpc-message:%s\r\n", code, url.PathEscape(msg))
	_, _ = w.Write(frame(flagTrailer, []byte(trailer)))
}

type rawMsg struct{ data []byte }

// rawCodec passes message bytes through untouched. It reports the JSON codec's
// name so the server decodes the payload with it.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) { return v.(*rawMsg).data, nil }

func (rawCodec) Unmarshal(data []byte, v any) error {
	m := v.(*rawMsg)
	m.data = append([]byte(nil), data...)
	return nil
}

func (rawCodec) Name() string { return grpcapi.CodecName }
