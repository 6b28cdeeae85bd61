// Package assets переписывает параметры ассетов в CloudFormation-шаблоне
// для публикации через вторичный канал распространения.
//
// # Обзор
//
// CDK генерирует шаблон с параметрами вида
//
//	AssetParameters<hash>S3Bucket
//	AssetParameters<hash>S3VersionKey
//	AssetParameters<hash>ArtifactHash
//
// Во вторичном канале значения по умолчанию должны указывать на общий
// бакет ассетов. Patch проставляет Default каждому такому параметру:
//   - *Bucket       → бакет из TEMPLATE_ASSET_BUCKET или S3_ASSET_BUCKET
//   - *ArtifactHash → hash из имени параметра
//   - *S3VersionKey → "<prefix>/||asset.<hash>.zip", prefix из S3_ASSET_PREFIX
//
// Остальные параметры AssetParameters* попадают в Report.Ignored.
//
//	opts := assets.OptionsFromEnv(os.LookupEnv)
//	report, err := assets.PatchFile(in, out, opts)
package assets
