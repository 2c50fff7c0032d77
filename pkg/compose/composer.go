// Package compose turns a contact request into the plain-text summary that is
// posted to the customer's chat thread.
package compose

import (
	"embed"
	"fmt"
	"html"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-pickupform/pkg/model"
	"github.com/goliatone/go-pickupform/pkg/render/template/pongo"
)

//go:embed templates/*.tpl
var embedded embed.FS

// Placeholders for empty fields.
const (
	Placeholder = "未入力"
	None        = "なし"
)

const (
	rule              = "———"
	defaultDateLayout = "2006/01/02 15:04"
	headerTemplate    = "header"
	footerTemplate    = "footer"
)

var bannerPolicy = bluemonday.StrictPolicy()

type banner struct {
	name   string
	inline string
}

// Composer renders summaries. It is safe for concurrent use.
type Composer struct {
	engine     *pongo.Engine
	header     banner
	footer     banner
	dateLayout string
	engineOpts []pongo.Option
}

// Option configures a Composer.
type Option func(*Composer)

// WithHeader replaces the opening banner with an inline pongo2 template.
// Request fields are available by form key, e.g. {{ name }}. Markup in the
// rendered banner is stripped and entities are decoded, so escaped field
// values come through as typed.
func WithHeader(tpl string) Option {
	return func(c *Composer) {
		if strings.TrimSpace(tpl) != "" {
			c.header = banner{inline: tpl}
		}
	}
}

// WithFooter replaces the closing banner with an inline pongo2 template.
func WithFooter(tpl string) Option {
	return func(c *Composer) {
		if strings.TrimSpace(tpl) != "" {
			c.footer = banner{inline: tpl}
		}
	}
}

// WithTemplateDir loads header.tpl and footer.tpl from dir. A banner missing
// from dir falls back to the embedded one.
func WithTemplateDir(dir string) Option {
	return func(c *Composer) {
		if strings.TrimSpace(dir) != "" {
			c.engineOpts = append(c.engineOpts, pongo.WithBaseDir(dir))
		}
	}
}

// WithGlobals makes data visible to both banners next to the request fields.
// Request fields win on a name clash.
func WithGlobals(data map[string]any) Option {
	return func(c *Composer) {
		if len(data) > 0 {
			c.engineOpts = append(c.engineOpts, pongo.WithGlobalData(data))
		}
	}
}

// WithDateLayout changes how pickup dates are printed.
func WithDateLayout(layout string) Option {
	return func(c *Composer) {
		if strings.TrimSpace(layout) != "" {
			c.dateLayout = layout
		}
	}
}

// New builds a Composer with the embedded banners. Inline banners are parsed
// here so Compose only fails on execution errors.
func New(options ...Option) (*Composer, error) {
	c := &Composer{
		header:     banner{name: headerTemplate},
		footer:     banner{name: footerTemplate},
		dateLayout: defaultDateLayout,
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}

	templates, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, fmt.Errorf("compose: templates: %w", err)
	}
	engineOpts := append([]pongo.Option{pongo.WithName("compose"), pongo.WithFS(templates)}, c.engineOpts...)
	engine, err := pongo.New(engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}
	c.engine = engine

	for _, b := range []banner{c.header, c.footer} {
		if b.inline == "" {
			continue
		}
		if err := engine.Compile(b.inline); err != nil {
			return nil, fmt.Errorf("compose: %w", err)
		}
	}
	return c, nil
}

// Compose returns the summary text for req. The same request always yields
// the same text.
func (c *Composer) Compose(req model.ContactRequest) (string, error) {
	data := req.Values()

	header, err := c.render(c.header, data)
	if err != nil {
		return "", err
	}
	footer, err := c.render(c.footer, data)
	if err != nil {
		return "", err
	}

	var lines []string
	add := func(l ...string) { lines = append(lines, l...) }

	add(header...)
	add("", rule)
	add("【お名前】" + orElse(req.Name, Placeholder))
	if req.PlatformName != "" {
		add("【LINE名】" + req.PlatformName)
	}
	add(
		"【電話番号】"+orElse(req.Phone, Placeholder),
		"【やり取り方法】"+orElse(string(req.ContactMethod), Placeholder),
		"",
		"■ ご希望サービス",
		orElse(string(req.Service), Placeholder),
		"",
		"■ 回収現場住所",
		"〒"+orElse(req.PostalCode, Placeholder),
		orElse(req.Prefecture+req.City+req.Address1+req.Building, Placeholder),
		"",
		"建物種類："+orElse(req.BuildingType, Placeholder),
		"駐車場："+orElse(req.Parking, Placeholder),
		"エレベーター："+orElse(req.Elevator, Placeholder),
		"",
	)
	if req.NeedsDestination() {
		add(
			"■ 引越し先住所",
			"〒"+orElse(req.MovePostalCode, Placeholder),
			orElse(req.MovePrefecture+req.MoveCity+req.MoveAddress1, Placeholder),
			"",
		)
	}
	add("■ 回収・引越しする物", orElse(req.Items, Placeholder), "")
	if strings.TrimSpace(req.Note) != "" {
		add("■ ご相談内容", req.Note, "")
	}
	add(
		"■ お引き取り希望日時",
		"第1希望："+orElse(c.date(req.PickupDate1), Placeholder),
		"第2希望："+orElse(c.date(req.PickupDate2), None),
		"第3希望："+orElse(c.date(req.PickupDate3), None),
		"",
		"■ 添付画像："+strconv.Itoa(len(req.Images))+"枚",
		"",
	)
	add(footer...)
	add(rule)

	return strings.Join(lines, "\n"), nil
}

func (c *Composer) render(b banner, data map[string]any) ([]string, error) {
	var (
		out string
		err error
	)
	if b.inline != "" {
		out, err = c.engine.RenderString(b.inline, data)
	} else {
		out, err = c.engine.RenderTemplate(b.name, data)
	}
	if err != nil {
		return nil, fmt.Errorf("compose: banner: %w", err)
	}
	out = strings.TrimRight(bannerText(out), "\r\n")
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// bannerText turns rendered template output into chat text.
func bannerText(out string) string {
	if !strings.ContainsAny(out, "<>&") {
		return out
	}
	return html.UnescapeString(bannerPolicy.Sanitize(out))
}

func (c *Composer) date(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	t, err := time.Parse(model.DateTimeLayout, value)
	if err != nil {
		return value
	}
	return t.Format(c.dateLayout)
}

func orElse(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// TemplatesFS exposes the built-in banner templates so callers can copy or
// extend them.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return embedded
	}
	return sub
}
