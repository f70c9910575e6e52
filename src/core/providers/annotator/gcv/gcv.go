package gcv

import (
	"context"
	"fmt"
	"sync"

	"ip-risk-server-go/src/core/providers/annotator"
	"ip-risk-server-go/src/core/types"
	"ip-risk-server-go/src/core/utils"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// batchClient ImageAnnotatorClient 中用到的方法
type batchClient interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

// Provider Google Cloud Vision 图片标注提供者
type Provider struct {
	config *annotator.Config
	logger *utils.Logger

	mu        sync.Mutex
	client    batchClient
	newClient func(ctx context.Context) (batchClient, error)
}

// init 注册 Google Cloud Vision 提供者
func init() {
	annotator.Register("google", NewProvider)
}

// NewProvider 创建 Google Cloud Vision 提供者
func NewProvider(config *annotator.Config, logger *utils.Logger) (types.AnnotatorProvider, error) {
	p := &Provider{
		config: config,
		logger: logger,
	}
	p.newClient = p.dial
	return p, nil
}

// Initialize 客户端在第一次调用时创建，凭据问题在调用时才暴露
func (p *Provider) Initialize() error {
	return nil
}

// Cleanup 关闭客户端
func (p *Provider) Cleanup() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

func (p *Provider) dial(ctx context.Context) (batchClient, error) {
	var opts []option.ClientOption
	if p.config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(p.config.CredentialsFile))
	}
	return vision.NewImageAnnotatorClient(ctx, opts...)
}

// getClient 返回已创建的客户端，必要时创建
func (p *Provider) getClient(ctx context.Context) (batchClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}
	p.client = client
	return client, nil
}

// Annotate 一次请求同时获取logo和文字标注
func (p *Provider) Annotate(ctx context.Context, image []byte) (*types.Annotation, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, &types.UpstreamError{Service: annotator.ServiceName, Err: fmt.Errorf("创建Vision客户端失败: %w", err)}
	}

	maxResults := int32(p.config.MaxResults)
	resp, err := client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_LOGO_DETECTION, MaxResults: maxResults},
					{Type: visionpb.Feature_TEXT_DETECTION, MaxResults: maxResults},
				},
			},
		},
	})
	if err != nil {
		return nil, wrapStatusError(err)
	}

	responses := resp.GetResponses()
	if len(responses) == 0 {
		return nil, fmt.Errorf("%w: vision response is empty", types.ErrMalformedReply)
	}
	r := responses[0]
	if st := r.GetError(); st != nil && codes.Code(st.GetCode()) != codes.OK {
		return nil, &types.UpstreamError{
			Service: annotator.ServiceName,
			Message: st.GetMessage(),
			Err:     fmt.Errorf("vision error code %d", st.GetCode()),
		}
	}

	ann := &types.Annotation{
		Logos: make([]string, 0, len(r.GetLogoAnnotations())),
		Texts: make([]string, 0, len(r.GetTextAnnotations())),
	}
	for _, logo := range r.GetLogoAnnotations() {
		ann.Logos = append(ann.Logos, logo.GetDescription())
	}
	for _, text := range r.GetTextAnnotations() {
		ann.Texts = append(ann.Texts, text.GetDescription())
	}

	p.logger.Debug("Vision标注完成", map[string]interface{}{
		"logos": len(ann.Logos),
		"texts": len(ann.Texts),
	})
	return ann, nil
}

// wrapStatusError 提取 gRPC 状态中的错误信息
func wrapStatusError(err error) error {
	upstream := &types.UpstreamError{Service: annotator.ServiceName, Err: err}
	if st, ok := status.FromError(err); ok {
		upstream.Message = st.Message()
		upstream.StatusCode = httpStatusFromCode(st.Code())
	}
	return upstream
}

// httpStatusFromCode 常见 gRPC 状态码对应的 HTTP 状态码
func httpStatusFromCode(code codes.Code) int {
	switch code {
	case codes.InvalidArgument:
		return 400
	case codes.Unauthenticated:
		return 401
	case codes.PermissionDenied:
		return 403
	case codes.NotFound:
		return 404
	case codes.ResourceExhausted:
		return 429
	case codes.Unavailable:
		return 503
	case codes.DeadlineExceeded:
		return 504
	default:
		return 500
	}
}
