package components

import (
	"fmt"

	"autosense/internal/projector"
	"autosense/ui/tui/styles"

	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/NimbleMarkets/ntcharts/linechart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// MetricChart draws one metric's history window as a braille line chart.
type MetricChart struct {
	Metric   projector.Metric
	Chart    linechart.Model
	History  []float64
	Capacity int
	Width    int
	Height   int
}

func NewMetricChart(metric projector.Metric, capacity, width, height int) *MetricChart {
	// width, height, minX, maxX, minY, maxY
	lc := linechart.New(width, height, 0, float64(capacity-1), 0, 100)
	return &MetricChart{
		Metric:   metric,
		Chart:    lc,
		History:  make([]float64, 0, capacity),
		Capacity: capacity,
		Width:    width,
		Height:   height,
	}
}

func (c *MetricChart) Init() tea.Cmd {
	return nil
}

// SetHistory replaces the plotted window, keeping at most Capacity samples.
func (c *MetricChart) SetHistory(values []float64) {
	if len(values) > c.Capacity {
		values = values[len(values)-c.Capacity:]
	}
	c.History = append(c.History[:0], values...)
}

func (c *MetricChart) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return c, nil
}

func (c *MetricChart) Resize(w, h int) {
	c.Width = w
	c.Height = h
	c.Chart.Resize(w, h)
}

func (c *MetricChart) View() string {
	c.Chart.Clear()
	for i := 0; i < len(c.History)-1; i++ {
		c.Chart.DrawBrailleLine(
			canvas.Float64Point{X: float64(i), Y: c.History[i]},
			canvas.Float64Point{X: float64(i + 1), Y: c.History[i+1]},
		)
	}
	c.Chart.DrawXYAxisAndLabel()

	title := fmt.Sprintf("%s History", c.Metric)
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Foreground(styles.Highlight).Render(title),
		c.Chart.View(),
	)
}

var _ Component = (*MetricChart)(nil)
