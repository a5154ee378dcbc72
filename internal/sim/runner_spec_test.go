package sim_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/climemu/internal/climate"
	"github.com/san-kum/climemu/internal/params"
	"github.com/san-kum/climemu/internal/sim"
)

var _ = Describe("Runner", func() {
	var (
		provider  params.Provider
		emissions []float64
	)

	BeforeEach(func() {
		provider = params.Builtin()
		emissions = make([]float64, 85)
		for i := range emissions {
			emissions[i] = 10
		}
	})

	Context("with the DICE-2016 calibration", func() {
		var r *sim.Runner

		BeforeEach(func() {
			var err error
			r, err = sim.NewRunner(provider, emissions)
			Expect(err).NotTo(HaveOccurred())
		})

		It("defaults to the built-in model", func() {
			Expect(r.Model()).To(Equal(params.DICE2016))
			Expect(r.Dt()).To(Equal(sim.DefaultDt))
			Expect(r.StartYear()).To(Equal(sim.DefaultStartYear))
		})

		It("starts from the calibrated initial state", func() {
			tatm, tocean, err := r.Run()
			Expect(err).NotTo(HaveOccurred())
			Expect(tatm[0]).To(Equal(0.85))
			Expect(tocean[0]).To(Equal(0.0068))

			res := r.Result()
			Expect(res.MAt[0]).To(Equal(851.0))
			Expect(res.MUp[0]).To(Equal(460.0))
			Expect(res.MLo[0]).To(Equal(1740.0))
		})

		It("warms under sustained emissions", func() {
			tatm, tocean, err := r.Run()
			Expect(err).NotTo(HaveOccurred())
			Expect(tatm[len(tatm)-1]).To(BeNumerically(">", tatm[0]))
			Expect(tocean[len(tocean)-1]).To(BeNumerically(">", tocean[0]))
		})

		It("keeps every state finite", func() {
			_, _, err := r.Run()
			Expect(err).NotTo(HaveOccurred())
			res := r.Result()
			for _, s := range [][]float64{res.Tatm, res.Tocean, res.Forcing, res.MAt, res.MUp, res.MLo} {
				Expect(climate.Series(s).IsValid()).To(BeTrue())
			}
		})

		It("preserves the chained carbon invariant without emissions", func() {
			r.SetEmissions(make([]float64, 200))
			_, _, err := r.Run()
			Expect(err).NotTo(HaveOccurred())

			res := r.Result()
			c := r.Carbon()
			want := c.ConservedMass(res.MAt[0], res.MUp[0], res.MLo[0])
			for i := range res.MAt {
				got := c.ConservedMass(res.MAt[i], res.MUp[i], res.MLo[i])
				Expect(math.Abs(got-want) / want).To(BeNumerically("<", 1e-10))
			}
		})

		It("rejects an unknown model without losing the active one", func() {
			_, _, err := r.SwitchModel("nonexistent-model")
			Expect(climate.IsConfig(err)).To(BeTrue())
			Expect(r.Model()).To(Equal(params.DICE2016))
		})

		It("reports a domain error when the atmosphere is drained", func() {
			r.SetEmissions([]float64{-5000, 10})
			_, _, err := r.Run()
			Expect(climate.IsDomain(err)).To(BeTrue())
			Expect(err).To(MatchError(ContainSubstring("model " + params.DICE2016)))
		})
	})

	Context("with a half-year step", func() {
		It("scales emissions and time by dt", func() {
			r, err := sim.NewRunner(provider, []float64{10, 10, 10, 10}, sim.WithDt(0.5))
			Expect(err).NotTo(HaveOccurred())
			_, _, err = r.Run()
			Expect(err).NotTo(HaveOccurred())

			res := r.Result()
			Expect(res.Emissions).To(HaveLen(4))
			Expect(res.Years).To(Equal([]float64{2020, 2020.5, 2021, 2021.5, 2022}))
			Expect(r.EndYear()).To(Equal(2022.0))
		})
	})

	Context("running an ensemble", func() {
		It("reports missing members as configuration errors", func() {
			names, err := params.Ensemble("CMIP6")
			Expect(err).NotTo(HaveOccurred())

			_, err = sim.NewEnsemble(provider, emissions, 4).Run(context.Background(), names)
			Expect(climate.IsConfig(err)).To(BeTrue())
		})

		It("matches the sequential runs", func() {
			names := []string{params.DICE2016}
			seq, err := sim.RunMany(provider, emissions, names)
			Expect(err).NotTo(HaveOccurred())
			par, err := sim.NewEnsemble(provider, emissions, 1).Temperatures(context.Background(), names)
			Expect(err).NotTo(HaveOccurred())
			Expect(par).To(Equal(seq))
		})
	})
})
