package extract

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("findAmountValue", func() {
	var (
		text   string
		parsed parsedValue
	)

	JustBeforeEach(func() {
		parsed = findAmountValue(text)
	})

	When("both a high and a low priority keyword match", func() {
		BeforeEach(func() {
			text = "Amount Due: $100.00\nTotal: $999.00\n"
		})

		It("should pick the higher tier even for a smaller amount", func() {
			Expect(parsed.value).To(Equal("100.00"))
			Expect(parsed.confidence).To(Equal(95.0))
		})
	})

	When("the amount carries a currency code", func() {
		BeforeEach(func() {
			text = "Total AUD 1,250.00\n"
		})

		It("should strip the currency and thousands separators", func() {
			Expect(parsed.value).To(Equal("1250.00"))
			Expect(parsed.confidence).To(Equal(94.0))
		})
	})

	When("a keyword line has several candidates", func() {
		BeforeEach(func() {
			text = "Total: 40.00 60.00\n"
		})

		It("should pick the numerically largest", func() {
			Expect(parsed.value).To(Equal("60.00"))
			Expect(parsed.confidence).To(Equal(82.0))
		})
	})

	When("the amount sits on the line after the keyword", func() {
		BeforeEach(func() {
			text = "Amount Due\n$250.00\n"
		})

		It("should collect the next line", func() {
			Expect(parsed.value).To(Equal("250.00"))
			Expect(parsed.confidence).To(Equal(95.0))
		})
	})

	When("tax lines sit between the keyword lines", func() {
		BeforeEach(func() {
			text = "Subtotal: $90.00\nGST: $9.00\nAmount Due: $99.00\n"
		})

		It("should ignore the tax components", func() {
			Expect(parsed.value).To(Equal("99.00"))
			Expect(parsed.confidence).To(Equal(95.0))
		})
	})

	When("no keyword line yields a candidate", func() {
		BeforeEach(func() {
			text = "Paid 20.00 then 45.00\n"
		})

		It("should fall back to the largest amount anywhere", func() {
			Expect(parsed.value).To(Equal("45.00"))
			Expect(parsed.confidence).To(Equal(72.0))
		})
	})

	When("the only amount is zero", func() {
		BeforeEach(func() {
			text = "Total: 0.00\n"
		})

		It("should return nothing", func() {
			Expect(parsed.value).To(BeEmpty())
			Expect(parsed.confidence).To(BeZero())
		})
	})

	When("the text has no amounts", func() {
		BeforeEach(func() {
			text = "no numbers of interest\n"
		})

		It("should return nothing", func() {
			Expect(parsed.value).To(BeEmpty())
			Expect(parsed.confidence).To(BeZero())
		})
	})
})

var _ = Describe("normalizeAmount", func() {
	DescribeTable("amount tokens",
		func(input, expected string) {
			Expect(normalizeAmount(input)).To(Equal(expected))
		},
		Entry("dollar sign and separators", "$2,340.00", "2340.00"),
		Entry("currency code", "AUD 99.50", "99.50"),
		Entry("plain number", "45.00", "45.00"),
		Entry("zero rejected", "0.00", ""),
		Entry("no digits rejected", "n/a", ""),
	)
})
