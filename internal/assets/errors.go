package assets

import "errors"

var (
	// ErrNoBucket — в шаблоне есть параметр *Bucket, а бакет не задан.
	ErrNoBucket = errors.New("missing env TEMPLATE_ASSET_BUCKET and S3_ASSET_BUCKET")

	// ErrNoParameters — в шаблоне нет секции Parameters.
	ErrNoParameters = errors.New("template has no Parameters section")

	// ErrMalformedParameter — параметр не является объектом.
	ErrMalformedParameter = errors.New("malformed parameter")
)
