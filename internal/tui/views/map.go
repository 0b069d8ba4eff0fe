package views

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/arvelo/siteplot/internal/engine/geo"
	"github.com/arvelo/siteplot/internal/engine/interact"
	"github.com/arvelo/siteplot/internal/engine/reconcile"
	"github.com/arvelo/siteplot/internal/engine/storage"
	"github.com/arvelo/siteplot/internal/format"
	"github.com/arvelo/siteplot/internal/model"
	"github.com/arvelo/siteplot/internal/tui/components"
	"github.com/arvelo/siteplot/internal/tui/styles"
)

// DefaultOrg is the tenant scope used by the single-org TUI session.
const DefaultOrg = "default"

// MapModel is the map explorer: it owns the raw project collection, runs
// the geocode→filter→cluster pipeline, listens to the change feed, and
// drives marker interaction.
type MapModel struct {
	dbPath string
	org    string

	store      *storage.Store
	geocoder   *geo.Geocoder
	footprints *geo.FootprintResolver
	reconciler *reconcile.Reconciler
	logger     *log.Logger
	logFile    *os.File
	feedCh     chan model.ChangeEvent

	raw      []model.Project // authoritative collection, mutated by the reconciler only
	located  []model.Project // geocoded copy, same order as raw
	clusters []model.Cluster // filtered + clustered, rebuilt wholesale

	interactions *interact.Table
	cursor       int // marker cursor; -1 = map background

	statusFilter model.Status // "" = all
	filter       textinput.Model
	filterFocus  bool

	mapview components.MapView
	fitted  bool // viewport fit runs once per session

	footprint        *geo.Footprint
	footprintLoading bool

	dragMode bool
	// Session-only coordinate overrides from drag-repositioning, keyed by
	// project id. Never written back to the store.
	dragged map[string][2]float64

	notice    *reconcile.Notice
	noticeSeq int

	spin    spinner.Model
	loading bool
	err     error
	width   int
	height  int
}

type projectsLoadedMsg struct {
	Projects []model.Project
	Err      error
}

type geocodedMsg struct {
	Projects []model.Project
}

type footprintMsg struct {
	Key string
	FP  geo.Footprint
}

type feedEventMsg struct {
	Event model.ChangeEvent
	OK    bool
}

type noticeExpiredMsg struct {
	Seq int
}

func NewMapModel(dbPath string) MapModel {
	filter := textinput.New()
	filter.Placeholder = "Type to filter..."
	filter.CharLimit = 50

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	m := MapModel{
		dbPath:       dbPath,
		org:          DefaultOrg,
		filter:       filter,
		spin:         sp,
		cursor:       -1,
		interactions: interact.NewTable(),
		dragged:      make(map[string][2]float64),
		mapview:      components.NewMapView(0, 0),
		loading:      true,
	}

	m.logger, m.logFile = openSessionLog()

	store, err := storage.Open(dbPath)
	if err != nil {
		m.err = fmt.Errorf("opening store: %w", err)
		return m
	}
	m.store = store
	m.feedCh = store.Feed().Subscribe(m.org)

	client := geo.NewClient("")
	m.geocoder = geo.NewGeocoder(client, m.logger)
	m.footprints = geo.NewFootprintResolver(client, m.logger)
	m.reconciler = reconcile.New(store, m.logger)

	return m
}

// Close tears the session down: feed subscription first, then storage and
// the log file. Must run when the view is left or the scope changes.
func (m *MapModel) Close() {
	if m.store != nil {
		m.store.Feed().Unsubscribe(m.org, m.feedCh)
		m.store.Close()
		m.store = nil
	}
	if m.logFile != nil {
		m.logFile.Close()
		m.logFile = nil
	}
}

func openSessionLog() (*log.Logger, *os.File) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return log.New(os.Stderr, "", log.LstdFlags), nil
	}
	dir := filepath.Join(cfg, "siteplot")
	os.MkdirAll(dir, 0755)
	f, err := os.OpenFile(filepath.Join(dir, "session.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return log.New(os.Stderr, "", log.LstdFlags), nil
	}
	return log.New(f, "", log.LstdFlags), f
}

func (m MapModel) Init() tea.Cmd {
	if m.err != nil {
		return nil
	}
	return tea.Batch(m.loadCmd(), m.waitFeedCmd(), m.spin.Tick)
}

func (m MapModel) loadCmd() tea.Cmd {
	store, org, logger := m.store, m.org, m.logger
	return func() tea.Msg {
		projects, err := store.ListByOrg(org)
		if err != nil {
			return projectsLoadedMsg{Err: err}
		}
		// Diagnostic only: records the primary query's filter excluded.
		if excluded, err := store.ListExcluded(org); err == nil {
			for _, e := range excluded {
				logger.Printf("EXCLUDED id=%s status=%s address=%q", e.ID, e.Status, e.Address)
			}
		}
		return projectsLoadedMsg{Projects: projects}
	}
}

func (m MapModel) geocodeCmd(projects []model.Project) tea.Cmd {
	g := m.geocoder
	return func() tea.Msg {
		return geocodedMsg{Projects: g.ResolveAll(context.Background(), projects)}
	}
}

func (m MapModel) footprintCmd(key string, lng, lat float64) tea.Cmd {
	r := m.footprints
	return func() tea.Msg {
		return footprintMsg{Key: key, FP: r.Resolve(context.Background(), lng, lat)}
	}
}

func (m MapModel) waitFeedCmd() tea.Cmd {
	ch := m.feedCh
	return func() tea.Msg {
		e, ok := <-ch
		return feedEventMsg{Event: e, OK: ok}
	}
}

func (m MapModel) expireNoticeCmd() tea.Cmd {
	seq := m.noticeSeq
	return tea.Tick(reconcile.NoticeTTL, func(time.Time) tea.Msg {
		return noticeExpiredMsg{Seq: seq}
	})
}

func (m MapModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.mapview.SetSize(m.mapWidth(), m.mapHeight())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case projectsLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.err = fmt.Errorf("loading projects: %w", msg.Err)
			return m, nil
		}
		m.raw = withMargins(msg.Projects)
		m.loading = true
		return m, m.geocodeCmd(m.raw)

	case geocodedMsg:
		m.loading = false
		m.located = msg.Projects
		m.rebuild()
		if !m.fitted {
			lats, lngs := clusterCoords(m.clusters)
			if fit, ok := geo.FitViewport(lats, lngs); ok {
				m.mapview.ApplyFit(fit)
				m.fitted = true
			}
		}
		return m, nil

	case footprintMsg:
		// Last-activated-wins: discard results for superseded coordinates.
		if !m.interactions.Accepts(msg.Key) {
			return m, nil
		}
		fp := msg.FP
		m.footprint = &fp
		m.footprintLoading = false
		if fp.Ring != nil {
			m.mapview.SetFootprint(ringLatLng(fp))
		}
		return m, nil

	case feedEventMsg:
		if !msg.OK {
			// Feed closed: log and carry on with the last collection.
			m.logger.Printf("FEED subscription closed org=%s", m.org)
			return m, nil
		}
		var notice *reconcile.Notice
		var err error
		m.raw, notice, err = m.reconciler.Apply(m.raw, msg.Event)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.raw = withMargins(m.raw)
		m.loading = true
		cmds := []tea.Cmd{m.waitFeedCmd(), m.geocodeCmd(m.raw), m.spin.Tick}
		if notice != nil {
			m.notice = notice
			m.noticeSeq++
			cmds = append(cmds, m.expireNoticeCmd())
		}
		return m, tea.Batch(cmds...)

	case noticeExpiredMsg:
		if msg.Seq == m.noticeSeq {
			m.notice = nil
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if m.loading || m.footprintLoading {
			return m, cmd
		}
		return m, nil
	}

	if m.filterFocus {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.rebuild()
		return m, cmd
	}

	return m, nil
}

func (m MapModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		m.Close()
		return m, tea.Quit
	}

	if m.filterFocus {
		switch key {
		case "esc", "enter", "tab":
			m.filterFocus = false
			m.filter.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.rebuild()
		return m, cmd
	}

	if m.err != nil {
		switch key {
		case "esc", "q":
			m.Close()
			return m, func() tea.Msg { return NavigateToHome{} }
		}
		return m, nil
	}

	if m.dragMode {
		return m.handleDragKey(key)
	}

	switch key {
	case "esc", "q":
		// Background click semantics: dismiss the popup/panel layers
		// first, leave the view only from the idle state.
		if m.interactions.Activated() != "" {
			m.deactivate()
			return m, nil
		}
		if m.interactions.Hovered() != "" {
			m.interactions.HoverLeave()
			m.syncMarkers()
			return m, nil
		}
		m.Close()
		return m, func() tea.Msg { return NavigateToHome{} }

	case "n", "tab":
		m.moveCursor(1)
		return m, nil
	case "p", "shift+tab":
		m.moveCursor(-1)
		return m, nil

	case "enter":
		return m.activateCursor()

	case "/":
		m.filterFocus = true
		m.filter.Focus()
		return m, textinput.Blink

	case "s":
		m.cycleStatusFilter()
		return m, nil

	case "g":
		if m.interactions.Activated() != "" {
			m.dragMode = true
		}
		return m, nil

	case "e":
		m.exportCSV()
		return m, nil

	case "up":
		m.mapview.Pan(1, 0)
	case "down":
		m.mapview.Pan(-1, 0)
	case "left":
		m.mapview.Pan(0, -1)
	case "right":
		m.mapview.Pan(0, 1)
	case "+", "=":
		m.mapview.ZoomIn()
	case "-":
		m.mapview.ZoomOut()
	case "0":
		m.mapview.ZoomReset()
	}

	return m, nil
}

// handleDragKey repositions the activated cluster. The new coordinate
// lives only in the session override table.
func (m MapModel) handleDragKey(key string) (tea.Model, tea.Cmd) {
	const step = 0.0005

	var dLat, dLng float64
	switch key {
	case "esc", "enter", "g":
		m.dragMode = false
		return m, nil
	case "up", "k":
		dLat = step
	case "down", "j":
		dLat = -step
	case "left", "h":
		dLng = -step
	case "right", "l":
		dLng = step
	default:
		return m, nil
	}

	c, ok := m.activatedCluster()
	if !ok {
		m.dragMode = false
		return m, nil
	}
	// Cluster position already includes any prior overrides. Every member
	// moves together so the cluster stays intact at the new coordinate.
	lat := c.Lat + dLat
	lng := c.Lng + dLng
	for _, p := range c.Members {
		m.dragged[p.ID] = [2]float64{lat, lng}
	}

	// The activation must follow the key to the new coordinate before the
	// rebuild runs; rebuild deactivates any key it cannot find a cluster for.
	m.interactions.Activate(model.CoordKey(lng, lat))
	m.rebuild()
	return m, nil
}

func (m *MapModel) moveCursor(delta int) {
	if len(m.clusters) == 0 {
		return
	}
	m.cursor += delta
	if m.cursor >= len(m.clusters) {
		m.cursor = 0
	}
	if m.cursor < 0 {
		m.cursor = len(m.clusters) - 1
	}
	// Entering a marker replaces any previous popup, never stacks.
	m.interactions.HoverEnter(m.clusters[m.cursor].Key)
	m.syncMarkers()
}

func (m MapModel) activateCursor() (tea.Model, tea.Cmd) {
	if m.cursor < 0 || m.cursor >= len(m.clusters) {
		return m, nil
	}
	c := m.clusters[m.cursor]

	// Remove-before-install: popup and previous footprint layer go first.
	m.interactions.Activate(c.Key)
	m.mapview.ClearFootprint()
	m.footprint = nil
	m.footprintLoading = true

	m.mapview.CenterOn(c.Lat, c.Lng)
	m.syncMarkers()

	return m, tea.Batch(m.footprintCmd(c.Key, c.Lng, c.Lat), m.spin.Tick)
}

func (m *MapModel) deactivate() {
	m.interactions.Deactivate()
	m.mapview.ClearFootprint()
	m.footprint = nil
	m.footprintLoading = false
	m.dragMode = false
	m.syncMarkers()
}

func (m *MapModel) cycleStatusFilter() {
	if m.statusFilter == "" {
		m.statusFilter = model.Statuses[0]
	} else {
		next := ""
		for i, s := range model.Statuses {
			if s == m.statusFilter && i+1 < len(model.Statuses) {
				next = string(model.Statuses[i+1])
				break
			}
		}
		m.statusFilter = model.Status(next)
	}
	m.rebuild()
}

// rebuild recomputes the derived views wholesale: filter, cluster, markers.
// Runs after every mutation or filter change; never patches incrementally.
func (m *MapModel) rebuild() {
	visible := m.visibleProjects()
	m.clusters = geo.ClusterByCoord(visible)

	if m.cursor >= len(m.clusters) {
		m.cursor = len(m.clusters) - 1
	}

	// A popup or detail panel for a marker that was filtered out closes.
	if h := m.interactions.Hovered(); h != "" && !m.hasCluster(h) {
		m.interactions.HoverLeave()
	}
	if a := m.interactions.Activated(); a != "" && !m.hasCluster(a) {
		m.deactivate()
	}

	m.syncMarkers()
}

func (m MapModel) visibleProjects() []model.Project {
	words := strings.Fields(normalize(strings.TrimSpace(m.filter.Value())))

	var out []model.Project
	for _, p := range m.located {
		if m.statusFilter != "" && p.Status != m.statusFilter {
			continue
		}
		if len(words) > 0 {
			haystack := normalize(strings.Join([]string{p.Name, p.Owner, p.Address, string(p.Status)}, " "))
			match := true
			for _, w := range words {
				if !strings.Contains(haystack, w) {
					match = false
					break
				}
			}
			if !match {
				continue
			}
		}
		if o, ok := m.dragged[p.ID]; ok {
			p.Lat, p.Lng = o[0], o[1]
		}
		out = append(out, p)
	}
	return out
}

func (m *MapModel) syncMarkers() {
	markers := make([]components.Marker, 0, len(m.clusters))
	for _, c := range m.clusters {
		d := geo.Describe(c)
		markers = append(markers, components.Marker{
			Key:       c.Key,
			Lat:       c.Lat,
			Lng:       c.Lng,
			Glyph:     d.Glyph,
			Color:     lipgloss.Color(d.Color),
			Badge:     d.Badge,
			Hovered:   m.interactions.Phase(c.Key) == interact.Hovered,
			Activated: m.interactions.Phase(c.Key) == interact.Activated,
		})
	}
	m.mapview.SetMarkers(markers)
}

func (m MapModel) hasCluster(key string) bool {
	for _, c := range m.clusters {
		if c.Key == key {
			return true
		}
	}
	return false
}

func (m MapModel) activatedCluster() (model.Cluster, bool) {
	key := m.interactions.Activated()
	for _, c := range m.clusters {
		if c.Key == key {
			return c, true
		}
	}
	return model.Cluster{}, false
}

func (m MapModel) hoveredCluster() (model.Cluster, bool) {
	key := m.interactions.Hovered()
	for _, c := range m.clusters {
		if c.Key == key {
			return c, true
		}
	}
	return model.Cluster{}, false
}

func withMargins(projects []model.Project) []model.Project {
	for i := range projects {
		if v, ok := projects[i].ComputeMargin(); ok {
			margin := v
			projects[i].Margin = &margin
		}
	}
	return projects
}

func clusterCoords(clusters []model.Cluster) (lats, lngs []float64) {
	for _, c := range clusters {
		lats = append(lats, c.Lat)
		lngs = append(lngs, c.Lng)
	}
	return lats, lngs
}

func ringLatLng(fp geo.Footprint) [][2]float64 {
	ring := make([][2]float64, 0, len(fp.Ring))
	for _, p := range fp.Ring {
		ring = append(ring, [2]float64{p[1], p[0]})
	}
	return ring
}

// normalize removes accents/diacritics and lowercases text for fuzzy matching.
func normalize(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}), norm.NFC)
	result, _, _ := transform.String(t, strings.ToLower(s))
	return result
}

func (m MapModel) mapWidth() int {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m MapModel) mapHeight() int {
	h := m.height - 12
	if h < 8 {
		h = 8
	}
	return h
}

func (m MapModel) View() string {
	if m.err != nil {
		msg := styles.ErrorText.Render(fmt.Sprintf("Error: %v", m.err))
		hint := styles.StatusBar.Render("esc back")
		return lipgloss.JoinVertical(lipgloss.Left, msg, hint)
	}

	var b strings.Builder

	// Header
	b.WriteString(styles.Title.Render(fmt.Sprintf("Map: %d projects, %d markers", len(m.located), len(m.clusters))))
	if m.statusFilter != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
			Render(fmt.Sprintf("  [status: %s]", m.statusFilter)))
	}
	if m.loading {
		b.WriteString("  " + m.spin.View() + lipgloss.NewStyle().Foreground(styles.Muted).Render("resolving addresses"))
	}
	b.WriteString("\n")

	// Transient notice
	if m.notice != nil {
		style := lipgloss.NewStyle().Foreground(styles.Success)
		if m.notice.Kind == model.EventDelete {
			style = lipgloss.NewStyle().Foreground(styles.Warning)
		}
		b.WriteString(style.Render("• " + m.notice.Text))
	}
	b.WriteString("\n")

	// Filter
	filterStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	if m.filterFocus {
		filterStyle = lipgloss.NewStyle().Foreground(styles.Primary)
	}
	b.WriteString(filterStyle.Render("Filter: "))
	b.WriteString(m.filter.View())
	b.WriteString("\n")

	// Map
	b.WriteString(m.mapview.View())
	b.WriteString("\n")

	// Bottom panel: detail outranks popup
	if c, ok := m.activatedCluster(); ok {
		b.WriteString(m.viewDetail(c))
	} else if c, ok := m.hoveredCluster(); ok {
		b.WriteString(m.viewPopup(c))
	}
	b.WriteString("\n")

	// Status bar
	var statusText string
	switch {
	case m.filterFocus:
		statusText = "type to filter • esc done"
	case m.dragMode:
		statusText = "↑↓←→ move marker (view only) • g done"
	case m.interactions.Activated() != "":
		statusText = "g drag • n/p next marker • esc close panel"
	default:
		statusText = "n/p markers • enter open • ↑↓←→ pan • +/- zoom • s status • / filter • e export • esc back"
	}
	b.WriteString(styles.StatusBar.Render(statusText))

	return b.String()
}

// viewPopup is the transient hover summary: every member in cluster order.
func (m MapModel) viewPopup(c model.Cluster) string {
	var lines []string
	for _, p := range c.Members {
		lines = append(lines, fmt.Sprintf("%s • %s • %s", p.Name, p.Status, format.Currency(p.Value)))
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(geo.StatusColor(c.Dominant))).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

// viewDetail shows the first member of the activated cluster plus a count
// of the remainder and the footprint result.
func (m MapModel) viewDetail(c model.Cluster) string {
	p := c.Members[0]

	label := lipgloss.NewStyle().Foreground(styles.Muted)
	value := lipgloss.NewStyle().Foreground(styles.Text)

	var lines []string
	title := p.Name
	if len(c.Members) > 1 {
		title += fmt.Sprintf("  (+%d more at this location)", len(c.Members)-1)
	}
	lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(styles.Text).Render(title))

	row := func(l, v string) {
		lines = append(lines, label.Render(fmt.Sprintf("%-10s", l))+value.Render(v))
	}
	row("Owner:", p.Owner)
	row("Status:", string(p.Status))
	row("Value:", format.Currency(p.Value))
	if p.Margin != nil {
		row("Margin:", format.Percent(*p.Margin))
	}
	row("Start:", p.StartDate.Format("Jan 2, 2006"))
	row("Address:", p.Address)

	lat, lng := p.Lat, p.Lng
	coordNote := ""
	if _, ok := m.dragged[p.ID]; ok {
		o := m.dragged[p.ID]
		lat, lng = o[0], o[1]
		coordNote = "  (moved, session only)"
	}
	row("Coords:", fmt.Sprintf("%.6f, %.6f%s", lat, lng, coordNote))

	switch {
	case m.footprintLoading:
		lines = append(lines, m.spin.View()+label.Render(" looking up footprint"))
	case m.footprint != nil && m.footprint.Ring == nil:
		lines = append(lines, label.Render("Footprint: no data"))
	case m.footprint != nil && m.footprint.Approximate:
		row("Footprint:", fmt.Sprintf("~%s sq ft (approx. lot)", format.Number(m.footprint.AreaSqFt)))
	case m.footprint != nil:
		row("Footprint:", fmt.Sprintf("%s sq ft", format.Number(m.footprint.AreaSqFt)))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Primary).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

func (m MapModel) exportCSV() {
	dir := filepath.Dir(m.dbPath)
	base := strings.TrimSuffix(filepath.Base(m.dbPath), ".db")
	csvPath := filepath.Join(dir, base+".csv")
	if err := writeProjectsCSV(csvPath, m.visibleProjects()); err != nil {
		m.logger.Printf("EXPORT err=%v", err)
		return
	}
	m.logger.Printf("EXPORT path=%s", csvPath)
}
