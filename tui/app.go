package tui

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/southsales/tolmap/config"
	"github.com/southsales/tolmap/dataset"
	"github.com/southsales/tolmap/filter"
)

// allOption is the first entry of every dropdown and clears that level.
const allOption = "(all)"

// maxTableRows bounds the records table; the summary always covers every row.
const maxTableRows = 1000

// App represents the terminal dashboard
type App struct {
	app        *tview.Application
	pages      *tview.Pages
	form       *tview.Form
	dropdowns  [4]*tview.DropDown
	ranges     [3]*tview.InputField
	summary    *tview.TextView
	table      *tview.Table
	mapView    *tview.TextView
	statusBar  *tview.TextView
	grid       *Grid
	controller *Controller
	cfg        *config.Config

	selected [4]func(text string, index int)

	// syncing suppresses dropdown callbacks while options are replaced
	syncing bool
	// generation discards results of evaluations that were superseded
	generation atomic.Uint64
}

// NewApp creates the dashboard over a loaded dataset. cfg must be validated.
func NewApp(ds *dataset.Dataset, cfg *config.Config) (*App, error) {
	grid, err := NewGrid(60, 24, cfg.Map.ColorLow, cfg.Map.ColorHigh)
	if err != nil {
		return nil, fmt.Errorf("map colors: %w", err)
	}
	a := &App{
		app:        tview.NewApplication(),
		pages:      tview.NewPages(),
		grid:       grid,
		controller: NewController(ds, cfg),
		cfg:        cfg,
	}
	a.setupUI()
	a.syncOptions()
	return a, nil
}

// setupUI initializes the user interface
func (a *App) setupUI() {
	a.form = tview.NewForm()
	a.form.SetBorder(true).SetTitle(" Filters ").SetTitleAlign(tview.AlignLeft)

	for i, l := range dataset.Levels {
		level := l
		a.selected[i] = func(text string, index int) {
			if a.syncing {
				return
			}
			if text == allOption {
				text = ""
			}
			a.controller.SetLevel(level, text)
			a.syncOptions()
			a.refresh()
		}
		dd := tview.NewDropDown().
			SetLabel(level.String() + " ").
			SetFieldWidth(24).
			SetOptions([]string{allOption}, a.selected[i])
		a.dropdowns[i] = dd
		a.form.AddFormItem(dd)
	}

	for i := range a.ranges {
		field := RangeField(i)
		in := tview.NewInputField().
			SetLabel(field.String() + " ").
			SetPlaceholder("min,max").
			SetFieldWidth(16)
		in.SetDoneFunc(func(key tcell.Key) {
			if err := a.controller.SetRange(field, in.GetText()); err != nil {
				a.showError(err.Error())
				return
			}
			a.refresh()
		})
		a.ranges[i] = in
		a.form.AddFormItem(in)
	}

	a.form.AddButton("Reset", a.reset)
	a.form.AddButton("Quit", a.app.Stop)

	a.summary = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	a.summary.SetBorder(true).SetTitle(" Summary ").SetTitleAlign(tview.AlignLeft)

	a.table = tview.NewTable().
		SetFixed(1, 0).
		SetSelectable(true, false)
	a.table.SetBorder(true).SetTitle(" Locations ").SetTitleAlign(tview.AlignLeft)

	a.mapView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	a.mapView.SetBorder(true).SetTitle(" " + a.cfg.Server.Title + " ").SetTitleAlign(tview.AlignCenter)

	a.statusBar = tview.NewTextView().
		SetDynamicColors(true).
		SetText("[yellow]Loading...[white] | Press 'q' to quit")

	a.pages.AddPage("table", a.table, true, true)
	a.pages.AddPage("map", a.mapView, true, false)

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.summary, 8, 0, false).
		AddItem(a.pages, 0, 1, false)

	body := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(a.form, 48, 0, true).
		AddItem(right, 0, 1, false)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	// Set up key bindings
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if _, typing := a.app.GetFocus().(*tview.InputField); typing {
			return event
		}
		switch event.Rune() {
		case 'q', 'Q':
			a.app.Stop()
			return nil
		case 'm', 'M':
			a.pages.SwitchToPage("map")
			return nil
		case 't', 'T':
			a.pages.SwitchToPage("table")
			return nil
		case 'r', 'R':
			a.reset()
			return nil
		}
		if event.Key() == tcell.KeyCtrlL {
			a.app.SetFocus(a.table)
			return nil
		}
		if event.Key() == tcell.KeyCtrlF {
			a.app.SetFocus(a.form)
			return nil
		}
		return event
	})

	a.app.SetRoot(root, true)
}

// syncOptions replaces every dropdown's options with the cascade for the
// current selection and re-selects the current values.
func (a *App) syncOptions() {
	a.syncing = true
	defer func() { a.syncing = false }()

	opts := a.controller.Options()
	sel := a.controller.Selection()
	lists := [4][]string{opts.Provinces, opts.Districts, opts.SubDistricts, opts.HappyBlocks}
	for i, l := range dataset.Levels {
		choices := append([]string{allOption}, lists[i]...)
		idx := 0
		if v := sel.Value(l); v != "" {
			for j, c := range choices {
				if c == v {
					idx = j
					break
				}
			}
		}
		a.dropdowns[i].SetOptions(choices, a.selected[i])
		a.dropdowns[i].SetCurrentOption(idx)
	}
}

// refresh evaluates the current selection in the background and draws the
// result unless a newer evaluation started meanwhile.
func (a *App) refresh() {
	gen := a.generation.Add(1)
	sel := a.controller.Selection()
	a.statusBar.SetText("[yellow]Filtering...[white]")
	go func() {
		v := a.controller.Evaluate(sel)
		a.app.QueueUpdateDraw(func() {
			if a.generation.Load() != gen {
				return
			}
			a.display(v)
		})
	}()
}

func (a *App) reset() {
	a.controller.Reset()
	for _, in := range a.ranges {
		in.SetText("")
	}
	a.syncOptions()
	a.refresh()
}

// display draws one evaluation into every panel
func (a *App) display(v View) {
	a.summary.SetText(summaryText(v.Summary, a.controller.Selection()))
	a.fillTable(v.Rows)
	a.mapView.SetText(a.grid.Render(v.Rows, v.Center))
	a.mapView.ScrollToBeginning()

	status := fmt.Sprintf("[green]%d locations[white] | center %.4f, %.4f", len(v.Rows), v.Center.Lat, v.Center.Lon)
	if len(v.Rows) > maxTableRows {
		status += fmt.Sprintf(" | [yellow]table shows first %d[white]", maxTableRows)
	}
	a.statusBar.SetText(status + " | 'm' map, 't' table, 'r' reset, 'q' quit")
}

// showError reports a rejected input in the status bar and keeps the last view
func (a *App) showError(message string) {
	a.statusBar.SetText(fmt.Sprintf("[red]Error:[white] %s | fix the field and press Enter", message))
}

var tableHeaders = []string{
	dataset.ColHappyBlock,
	dataset.ColSubDistrict,
	dataset.ColDistrict,
	dataset.ColNetAdd,
	dataset.ColPotentialScore,
	dataset.ColPortUse,
	dataset.ColInstall,
	dataset.ColMarketShareTrue,
}

func (a *App) fillTable(rows []dataset.Record) {
	a.table.Clear()
	for col, h := range tableHeaders {
		a.table.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false))
	}
	for i := range rows {
		if i == maxTableRows {
			break
		}
		r := &rows[i]
		cells := []string{
			r.HappyBlock,
			r.SubDistrict,
			r.District,
			formatNumber(r.NetAdd),
			formatNumber(r.PotentialScore),
			formatNumber(r.PortUse),
			formatNumber(r.Install),
			strconv.FormatFloat(r.MarketShareTrue, 'f', 2, 64),
		}
		for col, text := range cells {
			cell := tview.NewTableCell(text)
			if col >= 3 {
				cell.SetAlign(tview.AlignRight)
			}
			a.table.SetCell(i+1, col, cell)
		}
	}
	a.table.ScrollToBeginning()
}

func summaryText(s filter.Summary, sel filter.Selection) string {
	return fmt.Sprintf(`[white::b]%d locations[white::-]
[dim]Port Use:[white] %s   [dim]Install:[white] %s   [dim]Net Add:[white] %s
[dim]Mean Potential Score:[white] %.2f   [dim]Mean Market Share True:[white] %.2f%%
[dim]Area:[white] %s / %s / %s / %s`,
		s.Count,
		formatNumber(s.PortUse), formatNumber(s.Install), formatNumber(s.NetAdd),
		s.MeanPotentialScore, s.MeanMarketShareTrue,
		orAll(sel.Province), orAll(sel.District), orAll(sel.SubDistrict), orAll(sel.HappyBlock))
}

func orAll(v string) string {
	if v == "" {
		return allOption
	}
	return v
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Run starts the TUI application
func (a *App) Run() error {
	a.refresh()
	return a.app.Run()
}
