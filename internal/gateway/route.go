package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v2"
)

// 認証要件の設定値。
const (
	authNone     = "none"
	authRequired = "required"
)

// RuleConfig はルーティングルールの設定値。組み込みルールとROUTES_FILEの両方で使う。
type RuleConfig struct {
	// Name はログとメトリクスで使うルール名。
	Name string `yaml:"name"`
	// Paths は完全一致で照合するパスの一覧。Prefixと排他。
	Paths []string `yaml:"paths"`
	// Prefix はセグメント単位で前方一致させるパス。Pathsと排他。
	Prefix string `yaml:"prefix"`
	// Methods は対象のHTTPメソッド。空なら全メソッド。
	Methods []string `yaml:"methods"`
	// Auth は "none" または "required"。空は "none" として扱う。
	Auth string `yaml:"auth"`
	// Target は転送先サービスのベースURL。
	Target string `yaml:"target"`
	// Rewrite はパスの書き換え規則。
	Rewrite RewriteConfig `yaml:"rewrite"`
}

// RewriteConfig は正規表現によるパス書き換えの設定値。
type RewriteConfig struct {
	// Pattern は外部パスに適用する正規表現。空なら書き換えない。
	Pattern string `yaml:"pattern"`
	// Replacement は置換後の文字列。$1等の参照が使える。
	Replacement string `yaml:"replacement"`
}

// Rule は起動時に確定する不変のルーティングルール。
type Rule struct {
	// Name はルール名。
	Name string
	// RequireAuth はAuth Gateを通す必要があるかどうか。
	RequireAuth bool
	// Target は転送先サービスのベースURL。
	Target *url.URL

	paths       []string
	prefix      string
	methods     map[string]struct{}
	rewrite     *regexp.Regexp
	replacement string
}

// NewRule は設定値を検証してRuleを生成する。
func NewRule(cfg RuleConfig) (*Rule, error) {
	if cfg.Name == "" {
		return nil, errors.New("ルール名が空です")
	}
	if (len(cfg.Paths) == 0) == (cfg.Prefix == "") {
		return nil, fmt.Errorf("ルール %s: pathsとprefixのどちらか一方を指定してください", cfg.Name)
	}

	target, err := url.Parse(cfg.Target)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return nil, fmt.Errorf("ルール %s: 転送先URLが不正です: %q", cfg.Name, cfg.Target)
	}

	r := &Rule{
		Name:        cfg.Name,
		Target:      target,
		paths:       cfg.Paths,
		prefix:      strings.TrimSuffix(cfg.Prefix, "/"),
		replacement: cfg.Rewrite.Replacement,
	}

	switch strings.ToLower(cfg.Auth) {
	case "", authNone:
	case authRequired:
		r.RequireAuth = true
	default:
		return nil, fmt.Errorf("ルール %s: authの値が不正です: %q", cfg.Name, cfg.Auth)
	}

	if len(cfg.Methods) > 0 {
		r.methods = make(map[string]struct{}, len(cfg.Methods))
		for _, m := range cfg.Methods {
			r.methods[strings.ToUpper(m)] = struct{}{}
		}
	}

	if cfg.Rewrite.Pattern != "" {
		re, err := regexp.Compile(cfg.Rewrite.Pattern)
		if err != nil {
			return nil, fmt.Errorf("ルール %s: 書き換えパターンが不正です: %w", cfg.Name, err)
		}
		r.rewrite = re
	}
	return r, nil
}

// score はルールがリクエストに一致する場合に具体性を返す。
// 長いパターンほど大きく、同じ長さなら完全一致が前方一致に勝つ。
func (r *Rule) score(method, path string) (int, bool) {
	if r.methods != nil {
		if _, ok := r.methods[method]; !ok {
			return 0, false
		}
	}

	best, ok := 0, false
	for _, p := range r.paths {
		if path == p && len(p)*2+1 > best {
			best, ok = len(p)*2+1, true
		}
	}
	if r.prefix != "" && (path == r.prefix || strings.HasPrefix(path, r.prefix+"/")) {
		if len(r.prefix)*2 > best {
			best, ok = len(r.prefix)*2, true
		}
	}
	return best, ok
}

// Rewrite は外部パスを転送先サービスの内部パスに書き換える。
func (r *Rule) Rewrite(path string) string {
	if r.rewrite == nil {
		return path
	}
	out := r.rewrite.ReplaceAllString(path, r.replacement)
	if !strings.HasPrefix(out, "/") {
		out = "/" + out
	}
	return out
}

// Table はルーティングルールの集合。起動後は変更しない。
type Table struct {
	rules []*Rule
}

// NewTable は設定値の一覧からTableを生成する。
func NewTable(cfgs []RuleConfig) (*Table, error) {
	t := &Table{rules: make([]*Rule, 0, len(cfgs))}
	seen := make(map[string]struct{}, len(cfgs))
	for _, cfg := range cfgs {
		if _, dup := seen[cfg.Name]; dup {
			return nil, fmt.Errorf("ルール名が重複しています: %s", cfg.Name)
		}
		seen[cfg.Name] = struct{}{}

		r, err := NewRule(cfg)
		if err != nil {
			return nil, err
		}
		t.rules = append(t.rules, r)
	}
	return t, nil
}

// Match はメソッドとパスに最も具体的に一致するルールを返す。一致しなければnil。
// 同じ具体性のルールが複数ある場合は先に定義された方を優先する。
func (t *Table) Match(method, path string) *Rule {
	var (
		best      *Rule
		bestScore int
	)
	for _, r := range t.rules {
		s, ok := r.score(method, path)
		if ok && (best == nil || s > bestScore) {
			best, bestScore = r, s
		}
	}
	return best
}

// Rules は登録されているルールの一覧を返す。
func (t *Table) Rules() []*Rule {
	return t.rules
}

// DefaultRules は組み込みのルーティングルールを返す。
// /api/users配下はprofileを含めて認証なしで公開している。
func DefaultRules(userServiceURL, productServiceURL string) []RuleConfig {
	productRewrite := RewriteConfig{Pattern: "^/api/products", Replacement: "/products"}
	return []RuleConfig{
		{
			Name:    "users",
			Paths:   []string{"/api/users/register", "/api/users/login", "/api/users/profile"},
			Auth:    authNone,
			Target:  userServiceURL,
			Rewrite: RewriteConfig{Pattern: "^/api/users", Replacement: ""},
		},
		{
			Name:    "products-read",
			Prefix:  "/api/products",
			Methods: []string{http.MethodGet},
			Auth:    authNone,
			Target:  productServiceURL,
			Rewrite: productRewrite,
		},
		{
			Name:    "products-write",
			Prefix:  "/api/products",
			Methods: []string{http.MethodPost, http.MethodPut, http.MethodDelete},
			Auth:    authRequired,
			Target:  productServiceURL,
			Rewrite: productRewrite,
		},
	}
}

// routesFile はROUTES_FILEのYAML構造。
type routesFile struct {
	Routes []RuleConfig `yaml:"routes"`
}

// LoadRulesFile はYAMLファイルから追加のルーティングルールを読み込む。
// ファイル内の ${VAR} は環境変数で展開する。
func LoadRulesFile(path string) ([]RuleConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ルート定義ファイルの読み込みに失敗: %w", err)
	}

	var f routesFile
	if err := yaml.UnmarshalStrict([]byte(os.ExpandEnv(string(raw))), &f); err != nil {
		return nil, fmt.Errorf("ルート定義ファイルのパースに失敗: %w", err)
	}
	return f.Routes, nil
}
