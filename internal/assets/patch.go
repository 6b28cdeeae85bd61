package assets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Переменные окружения, из которых берутся Options.
const (
	EnvTemplateAssetBucket = "TEMPLATE_ASSET_BUCKET"
	EnvS3AssetBucket       = "S3_ASSET_BUCKET"
	EnvS3AssetPrefix       = "S3_ASSET_PREFIX"
)

// Пути по умолчанию для вывода cdk synth.
const (
	DefaultInput  = "cdk.out/CfnMultiRegionOrchestrator.template.json"
	DefaultOutput = "cdk.out/EventEngine.template.json"
)

const (
	assetPrefix    = "AssetParameters"
	bucketMarker   = "Bucket"
	hashMarker     = "ArtifactHash"
	versionMarker  = "S3VersionKey"
	versionKeyForm = "%s/||asset.%s.zip"
)

// Options — куда указывают переписанные параметры.
type Options struct {
	// Bucket — бакет ассетов. Пустой допустим, пока в шаблоне нет параметров *Bucket.
	Bucket string

	// Prefix — префикс ключей ассетов в бакете.
	Prefix string
}

// OptionsFromEnv собирает Options из окружения.
//
// TEMPLATE_ASSET_BUCKET имеет приоритет над S3_ASSET_BUCKET.
func OptionsFromEnv(lookup func(string) (string, bool)) Options {
	var opts Options
	if v, ok := lookup(EnvTemplateAssetBucket); ok {
		opts.Bucket = v
	} else if v, ok := lookup(EnvS3AssetBucket); ok {
		opts.Bucket = v
	}
	opts.Prefix, _ = lookup(EnvS3AssetPrefix)
	return opts
}

// Report — что сделал Patch. Имена отсортированы.
type Report struct {
	Patched []string
	Ignored []string
}

// Patch проставляет Default параметрам AssetParameters* в шаблоне.
//
// Шаблон меняется на месте.
func Patch(template map[string]any, opts Options) (Report, error) {
	var report Report

	raw, ok := template["Parameters"]
	if !ok {
		return report, ErrNoParameters
	}
	params, ok := raw.(map[string]any)
	if !ok {
		return report, fmt.Errorf("%w: Parameters is %T", ErrMalformedParameter, raw)
	}

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !strings.HasPrefix(key, assetPrefix) {
			continue
		}

		value, ok := defaultFor(key, opts)
		if !ok {
			report.Ignored = append(report.Ignored, key)
			continue
		}
		if strings.Contains(key, bucketMarker) && opts.Bucket == "" {
			return report, fmt.Errorf("%w: %s", ErrNoBucket, key)
		}

		param, ok := params[key].(map[string]any)
		if !ok {
			return report, fmt.Errorf("%w: %s is %T", ErrMalformedParameter, key, params[key])
		}
		param["Default"] = value
		report.Patched = append(report.Patched, key)
	}

	return report, nil
}

// defaultFor возвращает новое значение Default для параметра ассета.
func defaultFor(key string, opts Options) (string, bool) {
	switch {
	case strings.Contains(key, bucketMarker):
		return opts.Bucket, true
	case strings.Contains(key, hashMarker):
		return assetHash(key, hashMarker), true
	case strings.Contains(key, versionMarker):
		return fmt.Sprintf(versionKeyForm, opts.Prefix, assetHash(key, versionMarker)), true
	default:
		return "", false
	}
}

// assetHash вырезает hash между AssetParameters и marker.
func assetHash(key, marker string) string {
	end := strings.Index(key, marker)
	if end < len(assetPrefix) {
		return ""
	}
	return key[len(assetPrefix):end]
}

// PatchBytes разбирает шаблон, патчит и сериализует обратно с отступом в 2 пробела.
func PatchBytes(data []byte, opts Options) ([]byte, Report, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	// Числа в шаблоне не должны превращаться во float64
	dec.UseNumber()

	var template map[string]any
	if err := dec.Decode(&template); err != nil {
		return nil, Report{}, fmt.Errorf("decode template: %w", err)
	}

	report, err := Patch(template, opts)
	if err != nil {
		return nil, report, err
	}

	out, err := json.MarshalIndent(template, "", "  ")
	if err != nil {
		return nil, report, fmt.Errorf("encode template: %w", err)
	}
	return out, report, nil
}

// PatchFile читает шаблон из in и пишет результат в out.
func PatchFile(in, out string, opts Options) (Report, error) {
	data, err := os.ReadFile(in)
	if err != nil {
		return Report{}, fmt.Errorf("read template: %w", err)
	}

	patched, report, err := PatchBytes(data, opts)
	if err != nil {
		return report, fmt.Errorf("%s: %w", in, err)
	}

	if err := os.WriteFile(out, patched, 0o644); err != nil {
		return report, fmt.Errorf("write template: %w", err)
	}
	return report, nil
}
