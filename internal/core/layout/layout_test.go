package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnIsSymmetricAroundParent(t *testing.T) {
	f := FanOut{Gap: 600, Spacing: 800}

	pts := f.Column(Point{X: 100, Y: 50}, 3)

	assert.Equal(t, []Point{{700, -750}, {700, 50}, {700, 850}}, pts)
	assert.Equal(t, 50.0, (pts[0].Y+pts[2].Y)/2)
}

func TestColumnSingleChildSitsLevel(t *testing.T) {
	pts := FanOut{Gap: 400, Spacing: 200}.Column(Point{Y: 10}, 1)
	assert.Equal(t, []Point{{400, 10}}, pts)
	assert.Nil(t, FanOut{}.Column(Point{}, 0))
}

func TestGridWrapsIntoRows(t *testing.T) {
	g := Grid{Gap: 550, ColSpacing: 350, RowSpacing: 400, Columns: 3}

	pts := g.Place(Point{X: 0, Y: 0}, 5)

	assert.Equal(t, []Point{
		{550, -200}, {900, -200}, {1250, -200},
		{550, 200}, {900, 200},
	}, pts)
}
