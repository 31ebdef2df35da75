package businessflow

import (
	"testing"

	"github.com/amirphl/parts-pricing/app/dto"
	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceModelFlow_WritesReannotateParts(t *testing.T) {
	env := newFlowEnv(t)
	flow := NewDeviceModelFlow(env.devices, env.parts, env.catalog, env.db.DB)
	partFlow := NewPartFlow(env.parts, env.catalog)

	p := env.part(t, "GH82-1", "Galaxy Z Flip5 hinge", 40)
	require.Nil(t, p.DeviceName)

	created, err := flow.CreateDeviceModel(env.ctx, &dto.CreateDeviceModelRequest{
		ModelName: "Galaxy Z Flip5",
		Category:  utils.ToPtr("HighEnd"),
		ModelCode: utils.ToPtr("SM-F731"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultBrand, created.Brand)
	assert.Equal(t, models.CategoryHighEnd, *created.Category)

	got, err := partFlow.GetPart(env.ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DeviceName)
	assert.Equal(t, "Galaxy Z Flip5", *got.DeviceName)
	assert.Equal(t, models.CategoryHighEnd, *got.Category)

	_, err = flow.UpdateDeviceModel(env.ctx, created.ID, &dto.UpdateDeviceModelRequest{Category: utils.ToPtr("midend")})
	require.NoError(t, err)
	got, err = partFlow.GetPart(env.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryMidEnd, *got.Category)

	require.NoError(t, flow.DeleteDeviceModel(env.ctx, created.ID))
	got, err = partFlow.GetPart(env.ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DeviceName)
	assert.Nil(t, got.Category)
}

func TestDeviceModelFlow_Validation(t *testing.T) {
	env := newFlowEnv(t)
	flow := NewDeviceModelFlow(env.devices, env.parts, env.catalog, env.db.DB)

	_, err := flow.CreateDeviceModel(env.ctx, &dto.CreateDeviceModelRequest{ModelName: "Galaxy X", Category: utils.ToPtr("flagship")})
	assert.True(t, IsValidationError(err))

	_, err = flow.CreateDeviceModel(env.ctx, &dto.CreateDeviceModelRequest{ModelName: "  "})
	assert.True(t, IsValidationError(err))

	_, err = flow.CreateDeviceModel(env.ctx, &dto.CreateDeviceModelRequest{ModelName: "Galaxy X", Category: utils.ToPtr("")})
	require.NoError(t, err)

	_, err = flow.CreateDeviceModel(env.ctx, &dto.CreateDeviceModelRequest{ModelName: "Galaxy X"})
	assert.True(t, IsConflict(err))

	_, err = flow.GetDeviceModel(env.ctx, 555)
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(flow.DeleteDeviceModel(env.ctx, 555)))
}

func TestDeviceModelFlow_ListAndSeed(t *testing.T) {
	env := newFlowEnv(t)
	flow := NewDeviceModelFlow(env.devices, env.parts, env.catalog, env.db.DB)

	rows, err := loadSeedDeviceModels()
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	res, err := flow.SeedDeviceModels(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, len(rows), res.Added)
	assert.Equal(t, 0, res.Updated)

	res, err = flow.SeedDeviceModels(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 0, res.Updated)

	require.NoError(t, env.db.DB.Model(&models.DeviceModel{}).
		Where("model_name = ?", "Galaxy S23").
		Update("category", models.CategoryLowEnd).Error)

	res, err = flow.SeedDeviceModels(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	list, err := flow.ListDeviceModels(env.ctx, &dto.ListDeviceModelsRequest{Search: utils.ToPtr("sm-s911")})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Galaxy S23", list.Items[0].ModelName)
	assert.Equal(t, models.CategoryHighEnd, *list.Items[0].Category)

	tabs, err := flow.ListDeviceModels(env.ctx, &dto.ListDeviceModelsRequest{Category: utils.ToPtr(models.CategoryTab), Limit: 1000})
	require.NoError(t, err)
	assert.NotEmpty(t, tabs.Items)
	for _, m := range tabs.Items {
		assert.Equal(t, models.CategoryTab, *m.Category)
	}
}
