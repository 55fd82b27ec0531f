package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spec-kit/asset-gateway/internal/domain"
	"github.com/spec-kit/asset-gateway/internal/service"
	apperrors "github.com/spec-kit/asset-gateway/pkg/util"
)

type loginCmd struct {
	Email    string `arg:"" help:"Account email."`
	Password string `help:"Account password." env:"ASSETCTL_PASSWORD" required:""`
	Remember bool   `help:"Keep the token after this terminal closes." short:"r"`
}

func (c *loginCmd) Run(a *app) error {
	res, err := a.auth.Login(a.ctx, c.Email, c.Password, c.Remember)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Logged in as %s (%s)\n", res.User.Email, res.User.Role)
	return nil
}

type logoutCmd struct{}

func (c *logoutCmd) Run(a *app) error {
	if err := a.auth.Logout(a.ctx); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Logged out")
	return nil
}

type whoamiCmd struct{}

func (c *whoamiCmd) Run(a *app) error {
	identity, err := a.auth.Whoami(a.ctx)
	if err != nil {
		return err
	}
	return printJSON(identity)
}

type resourcesCmd struct{}

func (c *resourcesCmd) Run(*app) error {
	for _, r := range domain.Resources() {
		fmt.Printf("%-16s %s\n", r.Key(), r.Name)
	}
	return nil
}

type listCmd struct {
	Resource string `arg:"" help:"Collection, e.g. customers."`
	Page     int    `help:"Page number." default:"1"`
	PerPage  int    `help:"Records per page." name:"per-page" default:"10"`
	Search   string `help:"Free-text filter."`
}

func (c *listCmd) Run(a *app) error {
	client, err := service.Generic(a.gw, c.Resource)
	if err != nil {
		return err
	}
	page, err := client.List(a.ctx, service.ListParams{Page: c.Page, PerPage: c.PerPage, Search: c.Search})
	if err != nil {
		return err
	}
	return printJSON(page)
}

type getCmd struct {
	Resource string `arg:"" help:"Collection."`
	ID       string `arg:"" help:"Record id."`
}

func (c *getCmd) Run(a *app) error {
	client, err := service.Generic(a.gw, c.Resource)
	if err != nil {
		return err
	}
	item, err := client.Get(a.ctx, c.ID)
	if err != nil {
		return err
	}
	return printJSON(item)
}

type createCmd struct {
	Resource string `arg:"" help:"Collection."`
	Data     string `help:"JSON body, @path to read a file, or - for stdin." required:""`
}

func (c *createCmd) Run(a *app) error {
	client, err := service.Generic(a.gw, c.Resource)
	if err != nil {
		return err
	}
	body, err := readPayload(c.Data, os.Stdin)
	if err != nil {
		return err
	}
	res, err := client.Create(a.ctx, body)
	if err != nil {
		return err
	}
	return printJSON(res)
}

type updateCmd struct {
	Resource string `arg:"" help:"Collection."`
	ID       string `arg:"" help:"Record id."`
	Data     string `help:"JSON body, @path to read a file, or - for stdin." required:""`
}

func (c *updateCmd) Run(a *app) error {
	client, err := service.Generic(a.gw, c.Resource)
	if err != nil {
		return err
	}
	body, err := readPayload(c.Data, os.Stdin)
	if err != nil {
		return err
	}
	res, err := client.Update(a.ctx, c.ID, body)
	if err != nil {
		return err
	}
	return printJSON(res)
}

type deleteCmd struct {
	Resource string `arg:"" help:"Collection."`
	ID       string `arg:"" help:"Record id."`
}

func (c *deleteCmd) Run(a *app) error {
	client, err := service.Generic(a.gw, c.Resource)
	if err != nil {
		return err
	}
	if err := client.Delete(a.ctx, c.ID); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Deleted", c.ID)
	return nil
}

type bulkDeleteCmd struct {
	Resource string   `arg:"" help:"Collection."`
	IDs      []string `arg:"" name:"id" help:"Record ids."`
}

func (c *bulkDeleteCmd) Run(a *app) error {
	client, err := service.Generic(a.gw, c.Resource)
	if err != nil {
		return err
	}
	result, err := client.BulkDelete(a.ctx, c.IDs)
	if result != nil {
		fmt.Fprintln(os.Stderr, result.Message)
		for _, f := range result.Failures {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", f.ID, describe(f.Err))
		}
	}
	return err
}

type exportCmd struct {
	Resource string `arg:"" help:"Collection."`
	Format   string `help:"Export format." default:"csv"`
	Search   string `help:"Free-text filter."`
	Out      string `help:"Output file. Defaults to the name the server suggests." short:"o"`
}

func (c *exportCmd) Run(a *app) error {
	client, err := service.Generic(a.gw, c.Resource)
	if err != nil {
		return err
	}
	blob, err := client.Export(a.ctx, c.Format, service.ListParams{Search: c.Search})
	if err != nil {
		return err
	}
	return saveBlob(blob, c.Out, client.Resource().Key()+"-export."+c.Format)
}

type importCmd struct {
	Resource string `arg:"" help:"Collection."`
	File     string `arg:"" type:"existingfile" help:"Spreadsheet to upload."`
}

func (c *importCmd) Run(a *app) error {
	client, err := service.Generic(a.gw, c.Resource)
	if err != nil {
		return err
	}
	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := client.Import(a.ctx, service.ImportFile{Name: filepath.Base(c.File), Content: f}, nil)
	if err != nil {
		return err
	}
	return printJSON(res)
}

type templateCmd struct {
	Resource string `arg:"" help:"Collection."`
	Out      string `help:"Output file." short:"o"`
}

func (c *templateCmd) Run(a *app) error {
	client, err := service.Generic(a.gw, c.Resource)
	if err != nil {
		return err
	}
	blob, err := client.Template(a.ctx)
	if err != nil {
		return err
	}
	return saveBlob(blob, c.Out, client.Resource().Key()+"-template.csv")
}

type reportCmd struct {
	Name   string            `arg:"" help:"Report name, e.g. inventory."`
	Format string            `help:"Report format." default:"csv"`
	Param  map[string]string `help:"Report parameter as key=value."`
	Out    string            `help:"Output file." short:"o"`
}

func (c *reportCmd) Run(a *app) error {
	blob, err := a.catalog.Reports.Download(a.ctx, c.Name, c.Format, c.Param)
	if err != nil {
		return err
	}
	return saveBlob(blob, c.Out, c.Name+"."+c.Format)
}

func readPayload(data string, stdin io.Reader) (map[string]any, error) {
	var raw []byte
	var err error
	switch {
	case data == "-":
		raw, err = io.ReadAll(stdin)
	case strings.HasPrefix(data, "@"):
		raw, err = os.ReadFile(strings.TrimPrefix(data, "@"))
	default:
		raw = []byte(data)
	}
	if err != nil {
		return nil, apperrors.NewBadInput("cannot read payload", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, apperrors.NewBadInput("payload must be a JSON object", err)
	}
	return body, nil
}
