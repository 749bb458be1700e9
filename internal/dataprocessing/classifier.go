package dataprocessing

import "strings"

// Bucket is one of the seven canonical channel-attribution categories.
type Bucket string

const (
	BucketDirectOrganic  Bucket = "DirectOrganic"
	BucketGoogleAdsPaid  Bucket = "GoogleAdsPaid"
	BucketGoogleOrganic  Bucket = "GoogleOrganic"
	BucketAttentiveSMS   Bucket = "AttentiveSMS"
	BucketPriveyEmail    Bucket = "PriveyEmail"
	BucketActiveCampaign Bucket = "ActiveCampaign"
	BucketOtherMisc      Bucket = "OtherMisc"
)

// AllBuckets lists every bucket in summary column order.
var AllBuckets = []Bucket{
	BucketDirectOrganic,
	BucketGoogleAdsPaid,
	BucketGoogleOrganic,
	BucketAttentiveSMS,
	BucketPriveyEmail,
	BucketActiveCampaign,
	BucketOtherMisc,
}

// classifierRule matches a normalized (platform, channel, type) triple.
// An empty field means "don't care". platformOr widens the channel match to
// also accept the referring platform, which several vendors populate instead.
type classifierRule struct {
	channel    string
	typ        string
	platformOr bool
	bucket     Bucket
}

// classifierRules is evaluated top to bottom; the first match wins. The order
// is a deliberate tie-break policy: a direct visit outranks every
// channel-specific rule even when channel data is present.
var classifierRules = []classifierRule{
	{channel: "direct", platformOr: true, bucket: BucketDirectOrganic},
	{channel: "google", typ: "paid", bucket: BucketGoogleAdsPaid},
	{channel: "google", typ: "organic", bucket: BucketGoogleOrganic},
	{channel: "attentive", platformOr: true, bucket: BucketAttentiveSMS},
	{channel: "privy", platformOr: true, bucket: BucketPriveyEmail},
	{channel: "activecampaign", platformOr: true, bucket: BucketActiveCampaign},
}

// Classify maps a raw row's attribution fields to exactly one bucket. The
// function is total: every input combination, including empty strings, yields
// a bucket, with BucketOtherMisc as the catch-all.
func Classify(referringPlatform, channel, typ string) Bucket {
	rp := normalize(referringPlatform)
	ch := normalize(channel)
	ty := normalize(typ)

	for _, rule := range classifierRules {
		if ch != rule.channel && !(rule.platformOr && rp == rule.channel) {
			continue
		}
		if rule.typ != "" && ty != rule.typ {
			continue
		}
		return rule.bucket
	}
	return BucketOtherMisc
}

// normalize trims whitespace and lowercases for case-insensitive matching.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
