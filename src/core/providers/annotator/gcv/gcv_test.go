package gcv

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"

	"ip-risk-server-go/src/core/providers/annotator"
	"ip-risk-server-go/src/core/types"
	"ip-risk-server-go/src/core/utils"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	rpcstatus "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeClient struct {
	resp    *visionpb.BatchAnnotateImagesResponse
	err     error
	lastReq *visionpb.BatchAnnotateImagesRequest
	closed  bool
}

func (f *fakeClient) BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func newTestProvider(client *fakeClient, dials *int) *Provider {
	p := &Provider{
		config: &annotator.Config{Type: "google", MaxResults: 10},
		logger: utils.NewWriterLogger("error", io.Discard),
	}
	p.newClient = func(ctx context.Context) (batchClient, error) {
		*dials++
		return client, nil
	}
	return p
}

func TestAnnotate(t *testing.T) {
	client := &fakeClient{resp: &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{
			LogoAnnotations: []*visionpb.EntityAnnotation{{Description: "Nike"}},
			TextAnnotations: []*visionpb.EntityAnnotation{
				{Description: "NIKE AIR"},
				{Description: "NIKE"},
				{Description: "AIR"},
			},
		}},
	}}
	dials := 0
	p := newTestProvider(client, &dials)

	for i := 0; i < 2; i++ {
		ann, err := p.Annotate(context.Background(), []byte("img"))
		if err != nil {
			t.Fatalf("Annotate() error = %v", err)
		}
		if !reflect.DeepEqual(ann.Logos, []string{"Nike"}) {
			t.Errorf("Logos = %v", ann.Logos)
		}
		if !reflect.DeepEqual(ann.Texts, []string{"NIKE AIR", "NIKE", "AIR"}) {
			t.Errorf("Texts = %v", ann.Texts)
		}
	}
	if dials != 1 {
		t.Errorf("client created %d times, want 1", dials)
	}

	req := client.lastReq.GetRequests()[0]
	if string(req.GetImage().GetContent()) != "img" {
		t.Errorf("image content not forwarded")
	}
	features := req.GetFeatures()
	if len(features) != 2 || features[0].GetType() != visionpb.Feature_LOGO_DETECTION || features[1].GetType() != visionpb.Feature_TEXT_DETECTION {
		t.Errorf("features = %v", features)
	}

	if err := p.Cleanup(); err != nil || !client.closed {
		t.Errorf("Cleanup() err=%v closed=%v", err, client.closed)
	}
}

func TestAnnotate_StatusError(t *testing.T) {
	client := &fakeClient{err: status.Error(codes.PermissionDenied, "Cloud Vision API has not been used in project")}
	dials := 0
	p := newTestProvider(client, &dials)

	_, err := p.Annotate(context.Background(), []byte("img"))
	var upstream *types.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("error = %v, want *types.UpstreamError", err)
	}
	if upstream.StatusCode != 403 || upstream.Message != "Cloud Vision API has not been used in project" {
		t.Errorf("upstream = %+v", upstream)
	}
}

func TestAnnotate_PerImageError(t *testing.T) {
	client := &fakeClient{resp: &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{
			Error: &rpcstatus.Status{Code: int32(codes.InvalidArgument), Message: "Bad image data."},
		}},
	}}
	dials := 0
	p := newTestProvider(client, &dials)

	_, err := p.Annotate(context.Background(), []byte("img"))
	var upstream *types.UpstreamError
	if !errors.As(err, &upstream) || upstream.Message != "Bad image data." {
		t.Fatalf("error = %v", err)
	}
}

func TestAnnotate_EmptyResponse(t *testing.T) {
	client := &fakeClient{resp: &visionpb.BatchAnnotateImagesResponse{}}
	dials := 0
	p := newTestProvider(client, &dials)

	_, err := p.Annotate(context.Background(), []byte("img"))
	if !errors.Is(err, types.ErrMalformedReply) {
		t.Fatalf("error = %v, want ErrMalformedReply", err)
	}
}

func TestAnnotate_DialFailure(t *testing.T) {
	p := &Provider{
		config: &annotator.Config{Type: "google"},
		logger: utils.NewWriterLogger("error", io.Discard),
	}
	p.newClient = func(ctx context.Context) (batchClient, error) {
		return nil, errors.New("google: could not find default credentials")
	}

	_, err := p.Annotate(context.Background(), []byte("img"))
	var upstream *types.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("error = %v, want *types.UpstreamError", err)
	}
	if p.client != nil {
		t.Errorf("failed client must not be cached")
	}
}
