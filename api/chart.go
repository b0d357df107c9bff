package api

import (
	"github.com/asticode/go-astichartjs"
	"github.com/asticode/go-astiglove"
	astiptr "github.com/asticode/go-astitools/ptr"
)

// Chart is the body of the last gesture chart route
type Chart struct {
	AttemptID string            `json:"attempt_id"`
	Chart     astichartjs.Chart `json:"chart"`
}

// newChart plots the mean flex value of each hand over a resampled sequence
func newChart(seq Sequence) (o Chart) {
	// Create chart
	o = Chart{
		AttemptID: seq.AttemptID,
		Chart: astichartjs.Chart{
			Data: &astichartjs.Data{
				Datasets: []astichartjs.Dataset{
					{
						BackgroundColor: astichartjs.ChartBackgroundColorGreen,
						BorderColor:     astichartjs.ChartBorderColorGreen,
						Label:           "Left flex",
					},
					{
						BackgroundColor: astichartjs.ChartBackgroundColorBlue,
						BorderColor:     astichartjs.ChartBorderColorBlue,
						Label:           "Right flex",
					},
				},
			},
			Options: &astichartjs.Options{
				Scales: &astichartjs.Scales{
					XAxes: []astichartjs.Axis{
						{
							Position: astichartjs.ChartAxisPositionsBottom,
							ScaleLabel: &astichartjs.ScaleLabel{
								Display:     astiptr.Bool(true),
								LabelString: "Frame",
							},
							Type: astichartjs.ChartAxisTypesLinear,
						},
					},
					YAxes: []astichartjs.Axis{
						{
							ScaleLabel: &astichartjs.ScaleLabel{
								Display:     astiptr.Bool(true),
								LabelString: "Mean flex",
							},
						},
					},
				},
				Title: &astichartjs.Title{Display: astiptr.Bool(true)},
			},
			Type: astichartjs.ChartTypeLine,
		},
	}

	// Loop through frames
	for idx, f := range seq.Frames {
		o.Chart.Data.Datasets[0].Data = append(o.Chart.Data.Datasets[0].Data, astichartjs.DataPoint{
			X: float64(idx),
			Y: meanFlex(f.Left()),
		})
		o.Chart.Data.Datasets[1].Data = append(o.Chart.Data.Datasets[1].Data, astichartjs.DataPoint{
			X: float64(idx),
			Y: meanFlex(f.Right()),
		})
	}
	return
}

func meanFlex(hand []float64) (m float64) {
	for i := 0; i < astiglove.NumFlexChannels; i++ {
		m += hand[i]
	}
	return m / astiglove.NumFlexChannels
}
