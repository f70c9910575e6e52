package image

import "errors"

// ErrInvalidImage 上传的图片无法通过解码或安全验证
var ErrInvalidImage = errors.New("invalid image")

// 拒绝原因，用于日志和指标标签
const (
	ReasonEncoding  = "encoding"   // data URL 或 base64 无法解码
	ReasonEmpty     = "empty"      // 没有图片数据
	ReasonSize      = "size"       // 文件过大
	ReasonFormat    = "format"     // 不允许的格式
	ReasonPayload   = "payload"    // 可执行文件或压缩包
	ReasonDecode    = "decode"     // 无法按图片解码
	ReasonDimension = "dimensions" // 尺寸或像素数超限
)

// ImageData 解码后的图片
type ImageData struct {
	Data     []byte // 原始图片字节
	MIME     string // data URL 声明的类型，可能为空
	Format   string // 解码得到的实际格式：jpeg, png, gif, webp, bmp
	Width    int
	Height   int
	FileSize int64
}

// ValidationResult 图片验证结果
type ValidationResult struct {
	IsValid    bool   // 是否有效
	Format     string // 实际格式
	Width      int    // 图片宽度
	Height     int    // 图片高度
	FileSize   int64  // 文件大小
	Reason     string // 拒绝原因
	Error      error  // 错误信息
	Suspicious bool   // 上传内容夹带了非图片载荷
}

// ImageMetrics 图片处理统计信息
type ImageMetrics struct {
	TotalProcessed    int64 // 总处理数量
	DataURLs          int64 // 带 data URL 前缀的数量
	Base64Direct      int64 // 纯 base64 的数量
	FailedValidations int64 // 验证失败次数
	SecurityIncidents int64 // 夹带载荷的上传次数
}
