// Package realtycms implements the content lifecycle of a real-estate
// publishing site: properties, investments, news ("what's new") and builder
// reviews.
//
// The four kinds share one generic Item type parameterized over the
// kind-specific fields (PropertyExtra, InvestmentExtra, WhatsNewExtra,
// BuilderReviewExtra) and one generic ContentService. Kind constants such as
// the public URL path live in KindSpec.
//
// SEO metadata is derived from the core fields by BuildSEO unless the caller
// overrides individual values; slugs come from Slugify. Repositories (memory,
// Postgres) and image blob stores (memory, filesystem, S3) are provided under
// subpackages.
//
// Writes require an admin user. The acting username is passed explicitly to
// every write operation; the HTTP layer takes it from a verified token.
package realtycms
