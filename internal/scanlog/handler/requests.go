package handler

import (
	"net/url"
	"strconv"
	"time"

	"provenant/internal/scanlog/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	dedupe "provenant/pkg/platform/strings"
)

// parseFilter reads the scan query parameters. outcome may repeat or be
// comma-separated; valid takes true or false.
func parseFilter(q url.Values) (models.Filter, error) {
	var filter models.Filter

	if raw := q.Get("certificate_id"); raw != "" {
		cid, err := id.ParseCertificateID(raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeBadRequest, "invalid certificate_id")
		}
		filter.CertificateID = &cid
	}

	for _, raw := range dedupe.DedupeAndTrimLower(dedupe.SplitList(q["outcome"])) {
		outcome, err := models.ParseOutcome(raw)
		if err != nil {
			return filter, err
		}
		filter.Outcomes = append(filter.Outcomes, outcome)
	}

	if raw := q.Get("valid"); raw != "" {
		valid, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeBadRequest, "valid must be true or false")
		}
		filter.Validity = models.ValidityInvalid
		if valid {
			filter.Validity = models.ValidityValid
		}
	}

	var err error
	if filter.Since, err = parseTime(q, "since"); err != nil {
		return filter, err
	}
	if filter.Until, err = parseTime(q, "until"); err != nil {
		return filter, err
	}
	if filter.Limit, err = parseInt(q, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = parseInt(q, "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseTime(q url.Values, key string) (*time.Time, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, key+" must be an RFC 3339 timestamp")
	}
	t = t.UTC()
	return &t, nil
}

func parseInt(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, key+" must be a non-negative integer")
	}
	return n, nil
}
