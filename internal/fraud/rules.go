/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package fraud

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

//go:embed rules.yaml
var defaultRules []byte

type RuleFile struct {
	Thresholds struct {
		ManualReview int `yaml:"manual_review"`
		Fail         int `yaml:"fail"`
	} `yaml:"thresholds"`
	Seller struct {
		MinTrustScore   int           `yaml:"min_trust_score"`
		MaxDisputesLost int           `yaml:"max_disputes_lost"`
		MinAccountAge   time.Duration `yaml:"min_account_age"`
	} `yaml:"seller"`
	Price struct {
		MaxRatio float64 `yaml:"max_ratio"`
		MinRatio float64 `yaml:"min_ratio"`
	} `yaml:"price"`
	Event struct {
		MinLeadTime time.Duration `yaml:"min_lead_time"`
	} `yaml:"event"`
	Velocity struct {
		Window   time.Duration `yaml:"window"`
		Elevated int           `yaml:"elevated"`
		Max      int           `yaml:"max"`
	} `yaml:"velocity"`
	Platforms              map[string]string `yaml:"platforms"`
	DisposableEmailDomains []string          `yaml:"disposable_email_domains"`
}

// Rules is a validated rule set with compiled platform patterns.
type Rules struct {
	RuleFile
	patterns map[string]*regexp.Regexp
}

// DefaultRules returns the built-in rule set.
func DefaultRules() (*Rules, error) {
	return ParseRules(defaultRules)
}

// LoadRules reads rulesFile, relative to the working directory unless absolute.
// An empty name yields the built-in rule set.
func LoadRules(rulesFile string) (*Rules, error) {
	if rulesFile == "" {
		return DefaultRules()
	}

	var rulesPath string
	if filepath.IsAbs(rulesFile) {
		rulesPath = rulesFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		rulesPath = filepath.Join(wd, rulesFile)
	}

	data, err := os.ReadFile(rulesPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", rulesFile, err)
	}

	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", rulesFile, err)
	}
	return rules, nil
}

func ParseRules(data []byte) (*Rules, error) {
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	if file.Thresholds.ManualReview <= 0 || file.Thresholds.Fail <= file.Thresholds.ManualReview {
		return nil, fmt.Errorf("thresholds must satisfy 0 < manual_review < fail")
	}
	if file.Price.MinRatio <= 0 || file.Price.MaxRatio <= file.Price.MinRatio {
		return nil, fmt.Errorf("price ratios must satisfy 0 < min_ratio < max_ratio")
	}
	if file.Velocity.Window <= 0 || file.Velocity.Max < file.Velocity.Elevated {
		return nil, fmt.Errorf("velocity requires a window and max >= elevated")
	}

	rules := &Rules{RuleFile: file, patterns: make(map[string]*regexp.Regexp, len(file.Platforms))}
	for platform, pattern := range file.Platforms {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("platform %s has invalid pattern: %w", platform, err)
		}
		rules.patterns[platformKey(platform)] = re
	}
	for i, domain := range rules.DisposableEmailDomains {
		rules.DisposableEmailDomains[i] = strings.ToLower(strings.TrimSpace(domain))
	}
	return rules, nil
}

// Pattern returns the order reference format for platform, if one is registered.
func (r *Rules) Pattern(platform string) (*regexp.Regexp, bool) {
	re, ok := r.patterns[platformKey(platform)]
	return re, ok
}

// platformKey folds "See Tickets", "see-tickets" and "SEE_TICKETS" together.
func platformKey(platform string) string {
	key := strings.ToLower(strings.TrimSpace(platform))
	key = strings.ReplaceAll(key, " ", "_")
	return strings.ReplaceAll(key, "-", "_")
}
